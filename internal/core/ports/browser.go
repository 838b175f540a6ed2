package ports

import (
	"context"
	"time"

	"perfprobe/internal/core/domain"
)

type BrowserOptions struct {
	Headless  bool
	ExecPath  string
	UserAgent string
	NoSandbox bool
	Width     int
	Height    int

	// Zero means the driver default.
	StartupTimeout    time.Duration
	ExtractionTimeout time.Duration
}

// BrowserDriver launches one isolated browser session per call to Open.
type BrowserDriver interface {
	Open(ctx context.Context, opts BrowserOptions) (BrowserSession, error)
}

// BrowserSession is a single page in a fresh browser. Calls are expected in
// order: Instrument, Navigate, Extract. Close is safe to call more than once.
type BrowserSession interface {
	Instrument(ctx context.Context) error
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	Extract(ctx context.Context) (*domain.RawPerformancePayload, error)
	Close() error
}
