package snapcache

import "errors"

var (
	// ErrInvalidOption is returned by New when an option or argument is out of range.
	ErrInvalidOption = errors.New("snapcache: invalid option")

	// ErrRefreshFailed wraps the cause of an aborted refresh pass. Nothing of
	// the aborted pass is committed to the cache.
	ErrRefreshFailed = errors.New("snapcache: refresh failed")
)
