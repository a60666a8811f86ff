// Package debuglog writes leveled diagnostics to a file so the terminal
// stays free for the interface. Logging is off until Setup is called.
package debuglog

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelOff
)

var levelNames = map[Level]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
	LevelOff:   "OFF",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("LEVEL(%d)", int(l))
}

// ParseLevel accepts level names in any case plus "warning". Anything
// else is INFO.
func ParseLevel(s string) Level {
	name := strings.ToUpper(strings.TrimSpace(s))
	if name == "WARNING" {
		return LevelWarn
	}
	for l, n := range levelNames {
		if n == name {
			return l
		}
	}
	return LevelInfo
}

var (
	mu     sync.RWMutex
	level  = LevelOff
	sink   *log.Logger
	closer io.Closer
)

// DefaultPath is ~/.guardfeed/guardfeed.log.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".guardfeed", "guardfeed.log"), nil
}

// Setup reopens the log at path, or DefaultPath when path is empty.
// LevelOff closes any open file and writes nothing.
func Setup(l Level, path string) error {
	mu.Lock()
	defer mu.Unlock()

	closeLocked()
	level = l
	if l == LevelOff {
		return nil
	}

	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return fmt.Errorf("resolving log path: %w", err)
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file %s: %w", path, err)
	}

	closer = f
	sink = log.New(f, "", log.LstdFlags|log.Lmicroseconds)
	return nil
}

func SetLevel(l Level) {
	mu.Lock()
	level = l
	mu.Unlock()
}

func GetLevel() Level {
	mu.RLock()
	defer mu.RUnlock()
	return level
}

func Close() error {
	mu.Lock()
	defer mu.Unlock()
	return closeLocked()
}

func closeLocked() error {
	sink = nil
	if closer == nil {
		return nil
	}
	err := closer.Close()
	closer = nil
	return err
}

// Logger tags lines with a component and optional key=value fields.
// The zero value logs untagged.
type Logger struct {
	component string
	fields    []field
}

type field struct {
	key   string
	value any
}

// For returns a logger for one part of the program, e.g. "cache".
func For(component string) *Logger {
	return &Logger{component: component}
}

// With returns a copy carrying one more field. Fields print sorted by key.
func (lg *Logger) With(key string, value any) *Logger {
	fields := append(slices.Clone(lg.fields), field{key, value})
	slices.SortStableFunc(fields, func(a, b field) int { return strings.Compare(a.key, b.key) })
	return &Logger{component: lg.component, fields: fields}
}

func (lg *Logger) logf(l Level, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if l < level || sink == nil {
		return
	}

	var b strings.Builder
	b.WriteString(l.String())
	b.WriteByte(' ')
	if lg.component != "" {
		b.WriteString(lg.component)
		b.WriteString(": ")
	}
	fmt.Fprintf(&b, format, args...)
	for _, f := range lg.fields {
		fmt.Fprintf(&b, " %s=%v", f.key, f.value)
	}
	sink.Print(b.String())
}

func (lg *Logger) Debugf(format string, args ...any) { lg.logf(LevelDebug, format, args...) }
func (lg *Logger) Infof(format string, args ...any)  { lg.logf(LevelInfo, format, args...) }
func (lg *Logger) Warnf(format string, args ...any)  { lg.logf(LevelWarn, format, args...) }
func (lg *Logger) Errorf(format string, args ...any) { lg.logf(LevelError, format, args...) }

var untagged = &Logger{}

func Debugf(format string, args ...any) { untagged.logf(LevelDebug, format, args...) }
func Infof(format string, args ...any)  { untagged.logf(LevelInfo, format, args...) }
func Warnf(format string, args ...any)  { untagged.logf(LevelWarn, format, args...) }
func Errorf(format string, args ...any) { untagged.logf(LevelError, format, args...) }
