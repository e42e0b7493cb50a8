package storecheck

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// RodDriver runs sessions as incognito contexts of one Chromium launched
// through go-rod. Locators are resolved through Locator.Query.
type RodDriver struct {
	headless bool
	logger   *zap.Logger

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
}

func NewRodDriver(cfg Config, logger *zap.Logger) *RodDriver {
	return &RodDriver{headless: cfg.Headless, logger: logger}
}

func (d *RodDriver) Name() string { return DriverRod }

func (d *RodDriver) start(ctx context.Context) (*rod.Browser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.browser != nil {
		return d.browser, nil
	}
	l := launcher.New().Headless(d.headless)
	controlURL, err := l.Context(ctx).Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chromium: %w", err)
	}
	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect to chromium: %w", err)
	}
	d.logger.Debug("chromium launched", zap.String("control_url", controlURL))
	d.launcher, d.browser = l, browser
	return browser, nil
}

func (d *RodDriver) NewSession(ctx context.Context) (Session, error) {
	browser, err := d.start(ctx)
	if err != nil {
		return nil, err
	}
	incognito, err := browser.Incognito()
	if err != nil {
		return nil, fmt.Errorf("incognito context: %w", err)
	}
	return &rodSession{browser: incognito}, nil
}

func (d *RodDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var err error
	if d.browser != nil {
		err = d.browser.Close()
		d.browser = nil
	}
	if d.launcher != nil {
		d.launcher.Kill()
		d.launcher = nil
	}
	return err
}

type rodSession struct {
	browser *rod.Browser
}

func (s *rodSession) NewPage(ctx context.Context) (Page, error) {
	page, err := s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("new page: %w", err)
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{Width: 1400, Height: 900}); err != nil {
		return nil, fmt.Errorf("set viewport: %w", err)
	}
	return &rodPage{page: page}, nil
}

// Close disposes the incognito context together with its pages.
func (s *rodSession) Close() error {
	return s.browser.Close()
}

type rodPage struct {
	page *rod.Page
}

func (p *rodPage) find(ctx context.Context, q Query) (*rod.Element, error) {
	pg := p.page.Context(ctx)
	if q.XPath {
		return pg.ElementX(q.Selector)
	}
	return pg.Element(q.Selector)
}

func (p *rodPage) visible(ctx context.Context, target Locator, q Query) (*rod.Element, error) {
	el, err := p.find(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%s not found: %w", target, err)
	}
	if err := el.WaitVisible(); err != nil {
		return nil, fmt.Errorf("%s not visible: %w", target, err)
	}
	return el, nil
}

func (p *rodPage) Navigate(ctx context.Context, url string, wait WaitCondition) error {
	pg := p.page.Context(ctx)

	var idle func()
	if wait.NetworkIdle {
		idle = pg.WaitRequestIdle(500*time.Millisecond, nil, nil, nil)
	}
	if err := pg.Navigate(url); err != nil {
		return fmt.Errorf("goto %s: %w", url, err)
	}
	if err := pg.WaitLoad(); err != nil {
		return fmt.Errorf("load %s: %w", url, err)
	}
	if idle != nil {
		idle()
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("network idle %s: %w", url, err)
		}
	}
	if wait.Selector != nil {
		return p.WaitVisible(ctx, *wait.Selector)
	}
	return nil
}

func (p *rodPage) Click(ctx context.Context, target Locator) error {
	q, err := target.Query()
	if err != nil {
		return err
	}
	el, err := p.visible(ctx, target, q)
	if err != nil {
		return err
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click %s: %w", target, err)
	}
	return nil
}

func (p *rodPage) Fill(ctx context.Context, target Locator, value string) error {
	q, err := target.Query()
	if err != nil {
		return err
	}
	el, err := p.visible(ctx, target, q)
	if err != nil {
		return err
	}
	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("fill %s: %w", target, err)
	}
	if err := el.Input(value); err != nil {
		return fmt.Errorf("fill %s: %w", target, err)
	}
	return nil
}

func (p *rodPage) WaitVisible(ctx context.Context, target Locator) error {
	q, err := target.Query()
	if err != nil {
		return err
	}
	_, err = p.visible(ctx, target, q)
	return err
}

func (p *rodPage) WaitEnabled(ctx context.Context, target Locator) error {
	q, err := target.Query()
	if err != nil {
		return err
	}
	_, err = p.visible(ctx, target, q.Enabled())
	return err
}

func (p *rodPage) WaitText(ctx context.Context, target Locator, text string) error {
	q, err := target.Query()
	if err != nil {
		return err
	}
	el, err := p.visible(ctx, target, q)
	if err != nil {
		return err
	}
	return waitTextIn(ctx, target, text, el.Text)
}

func (p *rodPage) WaitURL(ctx context.Context, pattern *regexp.Regexp) error {
	return waitURLMatch(ctx, pattern, func() (string, error) { return p.URL(ctx) })
}

func (p *rodPage) URL(ctx context.Context) (string, error) {
	info, err := p.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

func (p *rodPage) Screenshot(ctx context.Context) ([]byte, error) {
	png, err := p.page.Context(ctx).Screenshot(true, nil)
	if err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	return png, nil
}
