package data

import (
	"errors"
	"sync"
)

// Standard errors that backends and filesystems should use.
var (
	// Path resolution errors
	ErrInvalidPath    = errors.New("snapcache: invalid path detected")
	ErrNotMounted     = errors.New("snapcache: path not mounted")
	ErrAlreadyMounted = errors.New("snapcache: path already mounted")
	ErrMountBusy      = errors.New("snapcache: mount point busy")

	// Backend errors
	ErrBackendUnsupported = errors.New("snapcache: backend capability unsupported")
	ErrMountFailed        = errors.New("snapcache: mount initialization failed")

	// File operation errors
	ErrNotExist          = errors.New("snapcache: file does not exist")
	ErrExist             = errors.New("snapcache: file already exists")
	ErrIsDirectory       = errors.New("snapcache: is a directory")
	ErrNotDirectory      = errors.New("snapcache: not a directory")
	ErrPermission        = errors.New("snapcache: permission denied")
	ErrDirectoryNotEmpty = errors.New("snapcache: directory not empty")
	ErrTooLarge          = errors.New("snapcache: object exceeds backend size limit")

	// I/O errors
	ErrInvalid = errors.New("snapcache: invalid argument")
)

// Errors collects multiple errors, e.g. while shutting down several backends.
type Errors struct {
	mu     sync.RWMutex
	errors []error
}

func (e *Errors) Add(err error) {
	if err == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.errors = append(e.errors, err)
}

func (e *Errors) Errors() error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(e.errors) == 0 {
		return nil
	}

	return errors.Join(e.errors...)
}
