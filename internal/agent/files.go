package agent

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"hark/internal/dialog"
	"hark/internal/domain"
	"hark/internal/ports"
)

type fileStep int

const (
	fileAwaitFilename fileStep = iota + 1
	fileAwaitLocation
	fileDone
)

func (s fileStep) String() string {
	switch s {
	case fileAwaitFilename:
		return "await_filename"
	case fileAwaitLocation:
		return "await_location"
	case fileDone:
		return "done"
	}
	return "none"
}

type fileAction string

const (
	actionCreate fileAction = "create"
	actionOpen   fileAction = "open"
	actionDelete fileAction = "delete"
)

// FileManagers and Editors are tried in order.
var (
	FileManagers = []string{"nautilus", "nemo", "thunar", "dolphin", "pcmanfm", "xdg-open"}
	Editors      = []string{"gnome-text-editor", "gedit", "xed", "pluma", "kate", "leafpad", "mousepad"}
)

const (
	slotAction   = "action"
	slotFilename = "filename"
	slotDir      = "dir"
	slotListing  = "listing"

	maxListed = 8
)

var (
	appendTailRe   = regexp.MustCompile(`(?i)\bappend\b(.*)$`)
	closeFileRe    = regexp.MustCompile(`\bclose\b.*\bfile\b`)
	fileManagerRe  = regexp.MustCompile(`\b(open|show|browse)\s+(?:the\s+)?(file manager|file explorer|files app|files)\b`)
	folderOpenRe   = regexp.MustCompile(`\bopen\s+(?:the\s+)?(downloads?|documents?|desktop|pictures?|music|videos?|home)\s*(folder)?\b`)
	createFileRe   = regexp.MustCompile(`\b(create|make|new)\s+(?:a\s+)?(?:new\s+)?file\b`)
	openFileRe     = regexp.MustCompile(`\bopen\s+(?:a\s+|the\s+)?file\b`)
	deleteFileRe   = regexp.MustCompile(`\b(delete|remove|erase)\s+(?:a\s+|the\s+)?file\b`)
	editFileRe     = regexp.MustCompile(`\bedit\s+(?:a\s+|the\s+)?file\b`)
	errNoFileFound = errors.New("file not found")
)

// Files runs file-management commands and the create/open/delete dialogs.
// It is owned by the command consumer goroutine.
type Files struct {
	desktop ports.Desktop
	folders Folders
	machine *dialog.Machine[fileStep]

	current string
	editor  string
}

func NewFiles(desktop ports.Desktop, folders Folders) *Files {
	f := &Files{desktop: desktop, folders: folders}
	f.machine = dialog.NewMachine(f.flow(), nil)
	return f
}

// Active reports whether a file dialog is waiting for an answer.
func (f *Files) Active() bool { return f.machine.Active() }

// OnOutcome reports every dialog turn outcome to fn.
func (f *Files) OnOutcome(fn func(dialog.Outcome)) { f.machine.Observe(fn) }

// Step names the current dialog step.
func (f *Files) Step() string { return f.machine.State().Step.String() }

// Current is the path of the file opened or created last.
func (f *Files) Current() string { return f.current }

func (f *Files) Handle(_ context.Context, cmd domain.Command) domain.Reply {
	raw := strings.TrimSpace(cmd.RawText)
	t := strings.ToLower(commandText(cmd))

	if content, ok := cmd.Slot(domain.SlotContent); ok {
		return f.quickWrite(cmd, content)
	}
	if strings.Contains(t, "append") && f.current != "" {
		return f.appendFrom(raw)
	}
	if closeFileRe.MatchString(t) {
		return f.closeCurrent()
	}
	if fileManagerRe.MatchString(t) {
		if f.openManager(f.folders.Home) {
			return domain.Say("Opened file manager.")
		}
		return domain.Say("I couldn't open the file manager.")
	}
	if m := folderOpenRe.FindStringSubmatch(t); m != nil && !strings.Contains(t, "file ") {
		if f.openManager(f.folders.Path(m[1])) {
			return domain.Say(fmt.Sprintf("Opened %s folder.", f.folders.Label(m[1])))
		}
		return domain.Say("I couldn't open that folder.")
	}

	seed := map[string]any{}
	if d, ok := cmd.Slot(domain.SlotDirectory); ok {
		seed[slotDir] = d
	}

	switch {
	case createFileRe.MatchString(t):
		seed[slotAction] = actionCreate
		if name, ok := cmd.Slot(domain.SlotFile); ok {
			if n, err := dialog.Filename(name, ".txt"); err == nil {
				seed[slotFilename] = n
			}
		}
		return f.start(seed)
	case deleteFileRe.MatchString(t):
		seed[slotAction] = actionDelete
		return f.start(seed)
	case openFileRe.MatchString(t):
		seed[slotAction] = actionOpen
		return f.start(seed)
	case editFileRe.MatchString(t):
		if f.current != "" {
			return domain.Say("You can say append hello world to add text, then say close file when done.")
		}
		return domain.Say("Open a file first. Say: open file.")
	case strings.Contains(t, "append"):
		return domain.Say("Open a file first. Say: open file.")
	}

	return domain.Say("Say open file manager, open downloads folder, create a file, " +
		"open file, append hello world, close file, or delete file.")
}

// Continue feeds one answer to the active dialog. Append and close file
// requests are served without consuming the turn.
func (f *Files) Continue(_ context.Context, cmd domain.Command) domain.Reply {
	raw := strings.TrimSpace(cmd.RawText)
	t := strings.ToLower(raw)

	if strings.Contains(t, "append") && f.current != "" && !f.machine.IsCancel(t) {
		return f.appendFrom(raw)
	}
	if closeFileRe.MatchString(t) {
		f.machine.Reset()
		return f.closeCurrent()
	}
	turn := f.machine.Advance(raw)
	log.Debug("File dialog turn", "outcome", turn.Outcome, "step", turn.Step)
	return domain.Say(turn.Reply)
}

func (f *Files) start(seed map[string]any) domain.Reply {
	action := seed[slotAction].(fileAction)
	_, hasName := seed[slotFilename]
	_, hasDir := seed[slotDir]

	var first fileStep
	switch {
	case action == actionCreate && hasName && hasDir:
		first = fileDone
	case action == actionCreate && hasName:
		first = fileAwaitLocation
	case action == actionCreate:
		first = fileAwaitFilename
	case hasDir:
		first = fileAwaitFilename
	default:
		first = fileAwaitLocation
	}
	turn := f.machine.Start(first, nil, seed)
	log.Debug("File dialog started", "action", action, "outcome", turn.Outcome, "step", turn.Step)
	return domain.Say(turn.Reply)
}

func (f *Files) flow() dialog.Flow[fileStep] {
	return dialog.Flow[fileStep]{
		Done: fileDone,
		Steps: map[fileStep]dialog.Step[fileStep]{
			fileAwaitFilename: {Enter: f.enterFilename, Accept: f.acceptFilename},
			fileAwaitLocation: {Enter: f.enterLocation, Accept: f.acceptLocation},
		},
		Complete:    f.complete,
		CancelReply: "Okay, cancelled.",
	}
}

func actionOf(st *dialog.State[fileStep]) fileAction {
	a, _ := st.Slots[slotAction].(fileAction)
	return a
}

func (f *Files) folderOf(st *dialog.State[fileStep]) (string, string) {
	kw, _ := st.Slots[slotDir].(string)
	return f.folders.Path(kw), f.folders.Label(kw)
}

func (f *Files) enterFilename(st *dialog.State[fileStep]) (string, error) {
	action := actionOf(st)
	if action == actionCreate {
		return "What should be the file name?", nil
	}

	dir, label := f.folderOf(st)
	names := listFiles(dir)
	if len(names) == 0 {
		if action == actionDelete {
			return "", &dialog.Halt{Reply: fmt.Sprintf("No files found in %s.", label)}
		}
		return "", &dialog.Halt{Reply: fmt.Sprintf("I didn't find files in %s.", label)}
	}
	st.Slots[slotListing] = names
	if action == actionDelete {
		return "Which file should I delete? For example, say the file name.", nil
	}
	return "I found: " + strings.Join(names[:min(len(names), maxListed)], ", ") + ". Which file should I open?", nil
}

func (f *Files) acceptFilename(text string, st *dialog.State[fileStep]) (fileStep, error) {
	if actionOf(st) == actionCreate {
		name, err := dialog.Filename(text, ".txt")
		if err != nil {
			return 0, err
		}
		st.Slots[slotFilename] = name
		if _, ok := st.Slots[slotDir]; ok {
			return fileDone, nil
		}
		return fileAwaitLocation, nil
	}

	name, ok := dialog.Quoted(text)
	if !ok {
		name = strings.TrimSpace(text)
	}
	dir, _ := f.folderOf(st)
	pick, err := matchFile(listFiles(dir), name, actionOf(st) == actionDelete)
	if err != nil {
		if actionOf(st) == actionDelete {
			return 0, &dialog.Invalid{Prompt: "I couldn't find that file to delete. Please say the name again."}
		}
		return 0, &dialog.Invalid{Prompt: "I couldn't find that file. Please say the name again."}
	}
	st.Slots[slotFilename] = pick
	return fileDone, nil
}

func (f *Files) enterLocation(st *dialog.State[fileStep]) (string, error) {
	switch actionOf(st) {
	case actionCreate:
		return "Where should I save it?", nil
	case actionDelete:
		return "Which location? Say like, in Documents or in Downloads.", nil
	}
	return "Where should I look? You can say for example, in Downloads folder.", nil
}

func (f *Files) acceptLocation(text string, st *dialog.State[fileStep]) (fileStep, error) {
	dir, err := dialog.Directory(text)
	if err != nil {
		return 0, err
	}
	st.Slots[slotDir] = dir
	if actionOf(st) == actionCreate {
		if _, ok := st.Slots[slotFilename]; ok {
			return fileDone, nil
		}
	}
	return fileAwaitFilename, nil
}

func (f *Files) complete(st *dialog.State[fileStep]) string {
	dir, label := f.folderOf(st)
	name, _ := st.Slots[slotFilename].(string)
	path := filepath.Join(dir, name)

	switch actionOf(st) {
	case actionCreate:
		if err := touch(path); err != nil {
			log.Error("Failed to create file", "path", path, "err", err)
			return "I couldn't create the file."
		}
		f.current, f.editor = path, ""
		f.openManager(dir)
		return fmt.Sprintf("Saved %s in %s.", name, label)

	case actionOpen:
		f.current = path
		f.editor = f.openEditor(path)
		return fmt.Sprintf("Opened %s. You can say append hello world to add text, then say close file when done.", name)

	case actionDelete:
		if err := os.Remove(path); err != nil {
			log.Error("Failed to delete file", "path", path, "err", err)
			return "I couldn't delete it."
		}
		if f.current == path {
			f.current, f.editor = "", ""
		}
		return fmt.Sprintf("Deleted %s.", name)
	}
	return ""
}

func (f *Files) appendFrom(raw string) domain.Reply {
	content, ok := dialog.Quoted(raw)
	if !ok {
		if m := appendTailRe.FindStringSubmatch(raw); m != nil {
			content = strings.TrimSpace(m[1])
		}
	}
	if strings.TrimSpace(content) == "" {
		return domain.Say("I didn't catch what to append. Say for example: append hello world.")
	}
	if err := appendLine(f.current, content); err != nil {
		log.Error("Failed to append", "path", f.current, "err", err)
		return domain.Say("I couldn't write to the file.")
	}
	return domain.Say("Added to the file.")
}

func (f *Files) quickWrite(cmd domain.Command, content string) domain.Reply {
	var path string
	if name, ok := cmd.Slot(domain.SlotFile); ok {
		dir := f.folders.Home
		if d, ok := cmd.Slot(domain.SlotDirectory); ok {
			dir = f.folders.Path(d)
		} else if f.current != "" {
			dir = filepath.Dir(f.current)
		}
		n, err := dialog.Filename(name, ".txt")
		if err != nil {
			return domain.Say("Which file should I write to?")
		}
		path = filepath.Join(dir, n)
	} else if f.current != "" {
		path = f.current
	} else {
		return domain.Say("Open a file first. Say: open file.")
	}

	if err := appendLine(path, content); err != nil {
		log.Error("Failed to write", "path", path, "err", err)
		return domain.Say("I couldn't write to the file.")
	}
	f.current = path
	return domain.Say(fmt.Sprintf("Wrote to %s.", filepath.Base(path)))
}

func (f *Files) closeCurrent() domain.Reply {
	if f.current == "" {
		return domain.Say("No file is open right now.")
	}
	name := filepath.Base(f.current)
	editor := f.editor
	f.current, f.editor = "", ""

	targets := Editors
	if editor != "" {
		targets = []string{editor}
	}
	for _, exe := range targets {
		if err := f.desktop.KillByName(exe); err != nil {
			log.Debug("Editor not closed", "editor", exe, "err", err)
		}
	}
	return domain.Say(fmt.Sprintf("Closed %s.", name))
}

func (f *Files) openManager(dir string) bool {
	name, err := f.desktop.Launch(FileManagers, dir)
	if err != nil {
		log.Warn("No file manager", "dir", dir, "err", err)
		return false
	}
	log.Debug("Opened file manager", "program", name, "dir", dir)
	return true
}

// openEditor returns the editor it used, or "" when the desktop default
// handler opened the file.
func (f *Files) openEditor(path string) string {
	name, err := f.desktop.Launch(Editors, path)
	if err == nil {
		return name
	}
	if err := f.desktop.OpenPath(path); err != nil {
		log.Error("Failed to open file", "path", path, "err", err)
	}
	return ""
}

func listFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	slices.SortFunc(names, func(a, b string) int {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	})
	return names
}

// matchFile picks the exact name, then name.txt for deletes, then the first
// prefix or substring match.
func matchFile(names []string, want string, tryTxt bool) (string, error) {
	w := strings.ToLower(strings.TrimSpace(want))
	if w == "" {
		return "", errNoFileFound
	}
	for _, n := range names {
		if strings.ToLower(n) == w {
			return n, nil
		}
	}
	if tryTxt && !strings.Contains(w, ".") {
		for _, n := range names {
			if strings.ToLower(n) == w+".txt" {
				return n, nil
			}
		}
	}
	for _, n := range names {
		ln := strings.ToLower(n)
		if strings.HasPrefix(ln, w) || strings.Contains(ln, w) {
			return n, nil
		}
	}
	return "", errNoFileFound
}

func touch(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	fh, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}
	return fh.Close()
}

func appendLine(path, text string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	fh, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	if _, err := fh.WriteString(text); err != nil {
		fh.Close()
		return fmt.Errorf("write: %w", err)
	}
	return fh.Close()
}

func commandText(cmd domain.Command) string {
	if cmd.CleanedText != "" {
		return cmd.CleanedText
	}
	return cmd.RawText
}
