// Package media opens story pages and thumbnails outside the terminal.
package media

import (
	"fmt"
	"net/url"
	"os/exec"
	"path"
	"runtime"
	"strings"

	"github.com/ivanGusef/guardfeed/internal/storage"
)

const guardianWeb = "https://www.theguardian.com/"

type Type int

const (
	TypePage Type = iota
	TypeImage
)

func (t Type) String() string {
	if t == TypeImage {
		return "image"
	}
	return "page"
}

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
}

// DetectType classifies a link by its path extension.
func DetectType(link string) Type {
	u, err := url.Parse(link)
	if err != nil {
		return TypePage
	}
	if imageExtensions[strings.ToLower(path.Ext(u.Path))] {
		return TypeImage
	}
	return TypePage
}

// StoryURL is the web page for an item. Guardian ids are paths on the
// Guardian site; feed items usually carry a full link as their id.
func StoryURL(item storage.Item) string {
	if u, err := url.Parse(item.ID); err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
		return item.ID
	}
	return guardianWeb + strings.TrimPrefix(item.ID, "/")
}

// startCommand is swapped in tests.
var startCommand = func(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	// GUI openers detach; reap them in the background
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}

var lookPath = exec.LookPath

type Launcher struct {
	opener string
}

// NewLauncher uses opener when set, otherwise the first platform opener
// found on PATH.
func NewLauncher(opener string) *Launcher {
	if opener == "" {
		opener = defaultOpener(runtime.GOOS)
	}
	return &Launcher{opener: opener}
}

func (l *Launcher) Opener() string {
	return l.opener
}

// Open hands link to the opener. Only http and https links are opened.
func (l *Launcher) Open(link string) error {
	u, err := url.Parse(link)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("refusing to open %q: not a web link", link)
	}
	if l.opener == "" {
		return fmt.Errorf("no application found to open %s", DetectType(link))
	}

	name, args := l.opener, []string{link}
	if l.opener == "rundll32" {
		args = []string{"url.dll,FileProtocolHandler", link}
	}
	if err := startCommand(name, args...); err != nil {
		return fmt.Errorf("failed to start %s: %w", name, err)
	}
	return nil
}

func defaultOpener(goos string) string {
	var candidates []string
	switch goos {
	case "darwin":
		candidates = []string{"open"}
	case "windows":
		candidates = []string{"rundll32"}
	default:
		candidates = []string{"xdg-open", "wslview", "gio"}
	}
	return findCommand(candidates...)
}

func findCommand(commands ...string) string {
	for _, cmd := range commands {
		if _, err := lookPath(cmd); err == nil {
			return cmd
		}
	}
	return ""
}
