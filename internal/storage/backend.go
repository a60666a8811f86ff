package storage

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

var ErrNotFound = errors.New("record not found")

// Backend is a directory-like durable key/value surface.
type Backend interface {
	Write(key string, data []byte) error
	// Read returns ErrNotFound when no record is stored under key.
	Read(key string) ([]byte, error)
	List(pattern *regexp.Regexp) ([]string, error)
	Delete(key string) error
	Close() error
}

// Sweeper is implemented by backends that can leave partial writes behind
// after a crash. Sweep removes them.
type Sweeper interface {
	Sweep() error
}

const (
	KindFile   = "file"
	KindBolt   = "bolt"
	KindSQLite = "sqlite"
)

// Open creates the backend of the given kind rooted at path. For the file
// backend path is a directory, otherwise a database file.
func Open(kind, path string, timeout time.Duration) (Backend, error) {
	switch kind {
	case KindFile, "":
		return NewFileStore(nil, path), nil
	case KindBolt:
		return NewBoltStore(path, timeout)
	case KindSQLite:
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", kind)
	}
}
