package agent

import (
	"context"
	"fmt"
	log "log/slog"
	"strings"

	"hark/internal/domain"
	"hark/internal/ports"
)

// Apps maps a spoken application name to the executables tried for it.
var Apps = map[string][]string{
	"firefox":    {"firefox"},
	"chrome":     {"google-chrome", "chromium-browser"},
	"terminal":   {"gnome-terminal", "x-terminal-emulator", "konsole", "xfce4-terminal"},
	"vscode":     {"code"},
	"code":       {"code"},
	"spotify":    {"spotify"},
	"vlc":        {"vlc"},
	"rhythmbox":  {"rhythmbox"},
	"settings":   {"gnome-control-center", "unity-control-center"},
	"calculator": {"gnome-calculator", "kcalc", "galculator", "xcalc", "mate-calc"},
}

// appOrder fixes the scan order when no application slot was filled.
var appOrder = []string{"firefox", "chrome", "terminal", "vscode", "spotify", "vlc", "rhythmbox", "settings", "calculator"}

// Launcher starts allow-listed applications and the media folders.
type Launcher struct {
	desktop ports.Desktop
	folders Folders
}

func NewLauncher(desktop ports.Desktop, folders Folders) *Launcher {
	return &Launcher{desktop: desktop, folders: folders}
}

func (l *Launcher) Handle(_ context.Context, cmd domain.Command) domain.Reply {
	t := strings.ToLower(cmd.RawText)

	app, _ := cmd.Slot(domain.SlotApplication)
	if _, ok := Apps[app]; !ok {
		app = ""
		for _, k := range appOrder {
			if strings.Contains(t, k) {
				app = k
				break
			}
		}
	}

	if app != "" && app != "music" {
		name, err := l.desktop.Launch(Apps[app])
		if err == nil {
			log.Info("Launched application", "app", app, "exe", name)
			return domain.Say("Opened " + app + ".")
		}
		log.Warn("Failed to launch application", "app", app, "err", err)
	}

	for _, dir := range []string{"music", "downloads"} {
		if !strings.Contains(t, dir) {
			continue
		}
		if _, err := l.desktop.Launch(FileManagers, l.folders.Path(dir)); err != nil {
			log.Warn("Failed to open folder", "dir", dir, "err", err)
			break
		}
		return domain.Say(fmt.Sprintf("Opened %s folder.", titleCase(dir)))
	}

	if app == "" || app == "music" {
		return domain.Say("Could not launch that.")
	}
	return domain.Say("Could not launch " + app + ".")
}
