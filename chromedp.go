package storecheck

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// ChromedpDriver runs sessions as separate browser contexts of one Chromium
// allocated by chromedp.
type ChromedpDriver struct {
	headless bool
	logger   *zap.Logger

	mu            sync.Mutex
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

func NewChromedpDriver(cfg Config, logger *zap.Logger) *ChromedpDriver {
	return &ChromedpDriver{headless: cfg.Headless, logger: logger}
}

func (d *ChromedpDriver) Name() string { return DriverChromedp }

func (d *ChromedpDriver) start() (context.Context, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.browserCtx != nil {
		return d.browserCtx, nil
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", d.headless),
		chromedp.Flag("no-first-run", true),
		chromedp.WindowSize(1400, 900),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}
	d.logger.Debug("chromium launched")
	d.allocCancel, d.browserCtx, d.browserCancel = allocCancel, browserCtx, browserCancel
	return browserCtx, nil
}

func (d *ChromedpDriver) NewSession(ctx context.Context) (Session, error) {
	browserCtx, err := d.start()
	if err != nil {
		return nil, err
	}
	return &chromedpSession{parent: browserCtx}, nil
}

func (d *ChromedpDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var err error
	if d.browserCtx != nil {
		err = chromedp.Cancel(d.browserCtx)
		d.browserCancel()
		d.allocCancel()
		d.browserCtx = nil
	}
	return err
}

type chromedpSession struct {
	parent context.Context
	tabs   []context.Context
	cancel []context.CancelFunc
}

// NewPage opens a tab. The first tab creates the session's browser context;
// later tabs share it.
func (s *chromedpSession) NewPage(ctx context.Context) (Page, error) {
	var tabCtx context.Context
	var cancel context.CancelFunc
	if len(s.tabs) == 0 {
		tabCtx, cancel = chromedp.NewContext(s.parent, chromedp.WithNewBrowserContext())
	} else {
		tabCtx, cancel = chromedp.NewContext(s.tabs[0])
	}
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("new tab: %w", err)
	}
	s.tabs = append(s.tabs, tabCtx)
	s.cancel = append(s.cancel, cancel)
	return &chromedpPage{tab: tabCtx}, nil
}

// Close closes the tabs newest first; closing the first one disposes the
// browser context.
func (s *chromedpSession) Close() error {
	var err error
	for i := len(s.tabs) - 1; i >= 0; i-- {
		if cerr := chromedp.Cancel(s.tabs[i]); cerr != nil && err == nil {
			err = cerr
		}
		s.cancel[i]()
	}
	s.tabs, s.cancel = nil, nil
	return err
}

type chromedpPage struct {
	tab context.Context
}

// by picks the query strategy for q. BySearch waits on every match, so a CSS
// query that wants only the first match goes through querySelector instead.
func by(q Query) chromedp.QueryOption {
	if q.First && !q.XPath {
		return chromedp.ByQuery
	}
	return chromedp.BySearch
}

// run executes actions on the tab, bounded by the deadline of ctx.
func (p *chromedpPage) run(ctx context.Context, actions ...chromedp.Action) error {
	tctx, cancel := context.WithTimeout(p.tab, remaining(ctx, DefaultStepTimeout))
	defer cancel()
	return chromedp.Run(tctx, actions...)
}

func (p *chromedpPage) Navigate(ctx context.Context, url string, wait WaitCondition) error {
	if err := p.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("goto %s: %w", url, err)
	}
	if wait.NetworkIdle {
		if err := p.waitNetworkIdle(ctx); err != nil {
			return fmt.Errorf("network idle %s: %w", url, err)
		}
	}
	if wait.Selector != nil {
		return p.WaitVisible(ctx, *wait.Selector)
	}
	return nil
}

// waitNetworkIdle waits until the resource timing buffer stops growing for
// half a second, which is how long Playwright's networkidle waits too.
func (p *chromedpPage) waitNetworkIdle(ctx context.Context) error {
	const quiet = 500 * time.Millisecond
	last, since := -1, time.Now()
	return poll(ctx, func() (bool, error) {
		var n int
		if err := p.run(ctx, chromedp.Evaluate(`performance.getEntriesByType("resource").length`, &n)); err != nil {
			return false, err
		}
		if n != last {
			last, since = n, time.Now()
			return false, nil
		}
		return time.Since(since) >= quiet, nil
	})
}

func (p *chromedpPage) Click(ctx context.Context, target Locator) error {
	q, err := target.Query()
	if err != nil {
		return err
	}
	if err := p.run(ctx, chromedp.Click(q.Selector, by(q), chromedp.NodeVisible)); err != nil {
		return fmt.Errorf("click %s: %w", target, err)
	}
	return nil
}

func (p *chromedpPage) Fill(ctx context.Context, target Locator, value string) error {
	q, err := target.Query()
	if err != nil {
		return err
	}
	if err := p.run(ctx,
		chromedp.WaitVisible(q.Selector, by(q)),
		chromedp.Clear(q.Selector, by(q)),
		chromedp.SendKeys(q.Selector, value, by(q)),
	); err != nil {
		return fmt.Errorf("fill %s: %w", target, err)
	}
	return nil
}

func (p *chromedpPage) WaitVisible(ctx context.Context, target Locator) error {
	q, err := target.Query()
	if err != nil {
		return err
	}
	if err := p.run(ctx, chromedp.WaitVisible(q.Selector, by(q))); err != nil {
		return fmt.Errorf("%s not visible: %w", target, err)
	}
	return nil
}

func (p *chromedpPage) WaitEnabled(ctx context.Context, target Locator) error {
	q, err := target.Query()
	if err != nil {
		return err
	}
	en := q.Enabled()
	if err := p.run(ctx, chromedp.WaitVisible(en.Selector, by(en))); err != nil {
		return fmt.Errorf("%s not enabled: %w", target, err)
	}
	return nil
}

func (p *chromedpPage) WaitText(ctx context.Context, target Locator, text string) error {
	q, err := target.Query()
	if err != nil {
		return err
	}
	return waitTextIn(ctx, target, text, func() (string, error) {
		var s string
		err := p.run(ctx, chromedp.Text(q.Selector, &s, by(q), chromedp.NodeVisible))
		return s, err
	})
}

func (p *chromedpPage) WaitURL(ctx context.Context, pattern *regexp.Regexp) error {
	return waitURLMatch(ctx, pattern, func() (string, error) { return p.URL(ctx) })
}

func (p *chromedpPage) URL(ctx context.Context) (string, error) {
	var u string
	if err := p.run(ctx, chromedp.Location(&u)); err != nil {
		return "", err
	}
	return u, nil
}

func (p *chromedpPage) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	// quality 100 keeps the capture lossless PNG
	if err := p.run(ctx, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	return buf, nil
}
