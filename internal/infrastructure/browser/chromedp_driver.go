package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"perfprobe/internal/core/domain"
	"perfprobe/internal/core/ports"
)

const (
	DefaultStartupTimeout    = 30 * time.Second
	DefaultExtractionTimeout = 10 * time.Second
)

// ChromeDriver launches a fresh Chromium process per session.
type ChromeDriver struct {
	logger *zap.SugaredLogger
}

func NewChromeDriver(logger *zap.SugaredLogger) *ChromeDriver {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &ChromeDriver{logger: logger}
}

// allocatorOptions builds the exec allocator flags for opts. Without a
// UserDataDir option chromedp creates and removes a temporary profile.
func allocatorOptions(opts ports.BrowserOptions) []chromedp.ExecAllocatorOption {
	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)

	if !opts.Headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.NoSandbox {
		allocOpts = append(allocOpts, chromedp.NoSandbox)
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.Width > 0 && opts.Height > 0 {
		allocOpts = append(allocOpts, chromedp.WindowSize(opts.Width, opts.Height))
	}
	return allocOpts
}

// Open starts the browser and its first tab. The browser lifetime is bound
// to the session, not to ctx; ctx only bounds startup.
func (d *ChromeDriver) Open(ctx context.Context, opts ports.BrowserOptions) (ports.BrowserSession, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocatorOptions(opts)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(d.logger.Debugf),
		chromedp.WithErrorf(d.logger.Errorf),
	)

	startupTimeout := opts.StartupTimeout
	if startupTimeout <= 0 {
		startupTimeout = DefaultStartupTimeout
	}
	extractionTimeout := opts.ExtractionTimeout
	if extractionTimeout <= 0 {
		extractionTimeout = DefaultExtractionTimeout
	}

	s := &chromeSession{
		tabCtx:            tabCtx,
		tabCancel:         tabCancel,
		allocCancel:       allocCancel,
		extractionTimeout: extractionTimeout,
		acc:               NewAccumulator(),
		logger:            d.logger,
	}

	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		if e, ok := ev.(*runtime.EventBindingCalled); ok && e.Name == BindingName {
			if err := s.acc.Handle(e.Payload); err != nil {
				d.logger.Debugw("ignoring instrumentation report", "error", err)
			}
		}
	})

	// An empty Run launches the process and attaches to the first tab.
	err := launch(ctx, startupTimeout, func() error { return chromedp.Run(tabCtx) }, tabCancel)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("%w: %v", domain.ErrBrowserUnavailable, err)
	}

	d.logger.Debugw("browser session opened", "headless", opts.Headless)
	return s, nil
}

// launch calls start and waits for it. chromedp binds the browser process
// to the context of the first Run, so start must use the tab context itself
// rather than one derived with a deadline. Startup is bounded by calling
// abort, which cancels that context and makes start return.
func launch(ctx context.Context, timeout time.Duration, start func() error, abort func()) error {
	done := make(chan error, 1)
	go func() { done <- start() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		abort()
		<-done
		return ctx.Err()
	case <-timer.C:
		abort()
		<-done
		return fmt.Errorf("browser startup exceeded %s", timeout)
	}
}

type chromeSession struct {
	tabCtx            context.Context
	tabCancel         context.CancelFunc
	allocCancel       context.CancelFunc
	extractionTimeout time.Duration
	acc               *Accumulator
	logger            *zap.SugaredLogger

	mu           sync.Mutex
	instrumented bool
	navigated    bool
	extracted    bool
	closed       bool

	closeOnce sync.Once
	closeErr  error
}

// run executes actions on the already started tab, bounded by timeout (if
// positive) and by the caller's ctx. Never use it for the first Run.
func (s *chromeSession) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(s.tabCtx, timeout)
	} else {
		runCtx, cancel = context.WithCancel(s.tabCtx)
	}
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (s *chromeSession) checkOpen() error {
	if s.closed {
		return domain.ErrSessionClosed
	}
	return nil
}

// Instrument registers the report binding and the init script. It must run
// before Navigate so the observers exist before the first paint.
func (s *chromeSession) Instrument(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}

	err := s.run(ctx, 0,
		runtime.AddBinding(BindingName),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(instrumentationScript).Do(ctx)
			return err
		}),
	)
	if err != nil {
		return fmt.Errorf("install instrumentation: %w", err)
	}
	s.instrumented = true
	return nil
}

// Navigate loads url and waits for the load event or timeout.
func (s *chromeSession) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	if !s.instrumented {
		return errors.New("navigate called before instrumentation was installed")
	}
	if timeout <= 0 {
		timeout = domain.DefaultNavigationTimeout
	}

	err := s.run(ctx, timeout, chromedp.Navigate(url))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return fmt.Errorf("%w: %dms exceeded", domain.ErrNavigationTimeout, timeout.Milliseconds())
		}
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	s.navigated = true
	return nil
}

// Extract takes the one post-load snapshot and seals the accumulator.
func (s *chromeSession) Extract(ctx context.Context) (*domain.RawPerformancePayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if !s.navigated {
		return nil, errors.New("extract called before navigation completed")
	}
	if s.extracted {
		return nil, errors.New("performance data already extracted")
	}
	s.extracted = true

	var raw []byte
	if err := s.run(ctx, s.extractionTimeout, chromedp.Evaluate(extractScript, &raw)); err != nil {
		return nil, fmt.Errorf("evaluate extraction script: %w", err)
	}

	// Binding events from the flush precede the Evaluate response on the
	// wire, so the accumulator is complete here.
	lcp, cls := s.acc.Take()

	payload, err := DecodePayload(raw)
	if err != nil {
		return nil, err
	}
	payload.InstrumentedLCP = lcp
	payload.InstrumentedCLS = cls
	return payload, nil
}

// Close shuts the browser down. Safe to call more than once.
func (s *chromeSession) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		if err := chromedp.Cancel(s.tabCtx); err != nil && !errors.Is(err, context.Canceled) {
			s.closeErr = fmt.Errorf("close browser: %w", err)
		}
		s.tabCancel()
		s.allocCancel()
		s.logger.Debugw("browser session closed")
	})
	return s.closeErr
}
