// Package agent holds the task handlers behind the command router.
package agent

import (
	"os"
	"path/filepath"
	"strings"
)

var folderNames = map[string]string{
	"downloads": "Downloads",
	"documents": "Documents",
	"desktop":   "Desktop",
	"pictures":  "Pictures",
	"music":     "Music",
	"videos":    "Videos",
}

// Folders maps spoken folder keywords to directories under Home.
type Folders struct {
	Home string
}

// DefaultFolders roots keywords at the user's home directory.
func DefaultFolders() Folders {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Folders{Home: home}
}

// Path resolves a keyword such as "download" or "Documents". Unknown and
// empty keywords resolve to Home.
func (f Folders) Path(keyword string) string {
	k := strings.ToLower(strings.TrimSpace(keyword))
	if k == "" || k == "home" {
		return f.Home
	}
	for _, key := range []string{k, k + "s"} {
		if name, ok := folderNames[key]; ok {
			return filepath.Join(f.Home, name)
		}
	}
	return f.Home
}

// Label is the display name of a resolved folder.
func (f Folders) Label(keyword string) string {
	p := f.Path(keyword)
	if p == f.Home {
		return "home"
	}
	return filepath.Base(p)
}
