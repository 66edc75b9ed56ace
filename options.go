package snapcache

import (
	"fmt"
	"time"

	"github.com/mwantia/snapcache/log"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultRefreshPeriod  = 5 * time.Minute
	DefaultName           = "snapshot-file-cache"
	DefaultRunningDirName = ".tmp"
)

type Options struct {
	RefreshPeriod time.Duration
	RefreshDelay  time.Duration

	// Name labels the refresh task in logs and metrics
	Name string
	// RunningDirName is the child of the snapshots directory holding in-progress snapshots
	RunningDirName string

	Logger        *log.Logger
	LogLevel      log.LogLevel
	LogFile       string
	NoTerminalLog bool

	Registerer prometheus.Registerer
}

type Option func(*Options) error

func newDefaultOptions() *Options {
	return &Options{
		RefreshPeriod:  DefaultRefreshPeriod,
		Name:           DefaultName,
		RunningDirName: DefaultRunningDirName,
		LogLevel:       log.Info,
	}
}

// WithRefreshPeriod sets the interval between two scheduled refreshes.
func WithRefreshPeriod(period time.Duration) Option {
	return func(opts *Options) error {
		if period <= 0 {
			return fmt.Errorf("%w: refresh period must be positive, got %s", ErrInvalidOption, period)
		}

		opts.RefreshPeriod = period
		return nil
	}
}

// WithRefreshDelay sets the delay before the first scheduled refresh.
func WithRefreshDelay(delay time.Duration) Option {
	return func(opts *Options) error {
		if delay < 0 {
			return fmt.Errorf("%w: refresh delay must not be negative, got %s", ErrInvalidOption, delay)
		}

		opts.RefreshDelay = delay
		return nil
	}
}

func WithName(name string) Option {
	return func(opts *Options) error {
		if name == "" {
			return fmt.Errorf("%w: name must not be empty", ErrInvalidOption)
		}

		opts.Name = name
		return nil
	}
}

func WithRunningDirName(name string) Option {
	return func(opts *Options) error {
		if name == "" {
			return fmt.Errorf("%w: running snapshot directory name must not be empty", ErrInvalidOption)
		}

		opts.RunningDirName = name
		return nil
	}
}

// WithLogger uses an existing logger; the cache logs through logger.Named(name).
func WithLogger(logger *log.Logger) Option {
	return func(opts *Options) error {
		opts.Logger = logger
		return nil
	}
}

func WithLogLevel(logLevel log.LogLevel) Option {
	return func(opts *Options) error {
		opts.LogLevel = logLevel
		return nil
	}
}

func WithoutTerminalLog() Option {
	return func(opts *Options) error {
		opts.NoTerminalLog = true
		return nil
	}
}

func WithLogFile(logFile string) Option {
	return func(opts *Options) error {
		opts.LogFile = logFile
		return nil
	}
}

// WithRegisterer registers the cache metrics. Without it the collectors are
// kept unregistered.
func WithRegisterer(registerer prometheus.Registerer) Option {
	return func(opts *Options) error {
		opts.Registerer = registerer
		return nil
	}
}
