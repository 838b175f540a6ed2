package domain

import "errors"

var (
	ErrMissingURL         = errors.New("no url provided")
	ErrNavigationTimeout  = errors.New("navigation timeout")
	ErrBrowserUnavailable = errors.New("browser unavailable")
	ErrSessionBusy        = errors.New("browser session busy")
	ErrSessionClosed      = errors.New("browser session closed")
)
