package storecheck

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
)

// PlaywrightDriver runs sessions as Playwright browser contexts of one shared
// Chromium. Role, label and text locators map onto Playwright's own, so they
// follow the accessibility tree rather than an XPath approximation.
type PlaywrightDriver struct {
	headless bool
	logger   *zap.Logger

	mu      sync.Mutex
	pw      *playwright.Playwright
	browser playwright.Browser
}

func NewPlaywrightDriver(cfg Config, logger *zap.Logger) *PlaywrightDriver {
	return &PlaywrightDriver{headless: cfg.Headless, logger: logger}
}

// InstallPlaywright downloads the Playwright driver and Chromium.
func InstallPlaywright() error {
	return playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}})
}

func (d *PlaywrightDriver) Name() string { return DriverPlaywright }

func (d *PlaywrightDriver) start() (playwright.Browser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.browser != nil {
		return d.browser, nil
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(d.headless),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}
	d.logger.Debug("chromium launched", zap.String("version", browser.Version()))
	d.pw, d.browser = pw, browser
	return browser, nil
}

func (d *PlaywrightDriver) NewSession(ctx context.Context) (Session, error) {
	browser, err := d.start()
	if err != nil {
		return nil, err
	}
	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: 1400, Height: 900},
	})
	if err != nil {
		return nil, fmt.Errorf("new browser context: %w", err)
	}
	return &playwrightSession{ctx: bctx}, nil
}

func (d *PlaywrightDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var err error
	if d.browser != nil {
		err = d.browser.Close()
		d.browser = nil
	}
	if d.pw != nil {
		if stopErr := d.pw.Stop(); err == nil {
			err = stopErr
		}
		d.pw = nil
	}
	return err
}

type playwrightSession struct {
	ctx playwright.BrowserContext
}

func (s *playwrightSession) NewPage(ctx context.Context) (Page, error) {
	page, err := s.ctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("new page: %w", err)
	}
	return &playwrightPage{page: page}, nil
}

func (s *playwrightSession) Close() error {
	return s.ctx.Close()
}

type playwrightPage struct {
	page playwright.Page
}

// ms converts the time left on ctx into Playwright's millisecond timeouts.
// Playwright treats 0 as no timeout, so the result never drops below 1ms.
func ms(ctx context.Context) float64 {
	d := remaining(ctx, DefaultStepTimeout)
	if d < time.Millisecond {
		d = time.Millisecond
	}
	return float64(d) / float64(time.Millisecond)
}

func (p *playwrightPage) expect(ctx context.Context) playwright.PlaywrightAssertions {
	return playwright.NewPlaywrightAssertions(ms(ctx))
}

// locate resolves l on the page. It fails with ctx's error once ctx is done,
// since playwright-go only sees the deadline and not cancellation.
func (p *playwrightPage) locate(ctx context.Context, l Locator) (playwright.Locator, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := l.validate(); err != nil {
		return nil, err
	}
	var loc playwright.Locator
	if l.Within != nil {
		parent, err := p.locate(ctx, *l.Within)
		if err != nil {
			return nil, err
		}
		switch {
		case l.Role != "":
			opts := playwright.LocatorGetByRoleOptions{}
			if l.Name != "" {
				opts.Name = l.Name
			}
			loc = parent.GetByRole(playwright.AriaRole(l.Role), opts)
		case l.Label != "":
			loc = parent.GetByLabel(l.Label)
		case l.Text != "":
			loc = parent.GetByText(l.Text)
		default:
			loc = parent.Locator(l.CSS)
		}
	} else {
		switch {
		case l.Role != "":
			opts := playwright.PageGetByRoleOptions{}
			if l.Name != "" {
				opts.Name = l.Name
			}
			loc = p.page.GetByRole(playwright.AriaRole(l.Role), opts)
		case l.Label != "":
			loc = p.page.GetByLabel(l.Label)
		case l.Text != "":
			loc = p.page.GetByText(l.Text)
		default:
			loc = p.page.Locator(l.CSS)
		}
	}
	if l.First {
		loc = loc.First()
	}
	return loc, nil
}

func (p *playwrightPage) Navigate(ctx context.Context, url string, wait WaitCondition) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	waitUntil := playwright.WaitUntilStateLoad
	if wait.NetworkIdle {
		waitUntil = playwright.WaitUntilStateNetworkidle
	}
	if _, err := p.page.Goto(url, playwright.PageGotoOptions{
		Timeout:   playwright.Float(ms(ctx)),
		WaitUntil: waitUntil,
	}); err != nil {
		return fmt.Errorf("goto %s: %w", url, err)
	}
	if wait.Selector != nil {
		return p.WaitVisible(ctx, *wait.Selector)
	}
	return nil
}

func (p *playwrightPage) Click(ctx context.Context, target Locator) error {
	loc, err := p.locate(ctx, target)
	if err != nil {
		return err
	}
	if err := loc.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(ms(ctx))}); err != nil {
		return fmt.Errorf("click %s: %w", target, err)
	}
	return nil
}

func (p *playwrightPage) Fill(ctx context.Context, target Locator, value string) error {
	loc, err := p.locate(ctx, target)
	if err != nil {
		return err
	}
	if err := loc.Fill(value, playwright.LocatorFillOptions{Timeout: playwright.Float(ms(ctx))}); err != nil {
		return fmt.Errorf("fill %s: %w", target, err)
	}
	return nil
}

func (p *playwrightPage) WaitVisible(ctx context.Context, target Locator) error {
	loc, err := p.locate(ctx, target)
	if err != nil {
		return err
	}
	if err := p.expect(ctx).Locator(loc).ToBeVisible(); err != nil {
		return fmt.Errorf("%s not visible: %w", target, err)
	}
	return nil
}

func (p *playwrightPage) WaitEnabled(ctx context.Context, target Locator) error {
	loc, err := p.locate(ctx, target)
	if err != nil {
		return err
	}
	if err := p.expect(ctx).Locator(loc).ToBeEnabled(); err != nil {
		return fmt.Errorf("%s not enabled: %w", target, err)
	}
	return nil
}

func (p *playwrightPage) WaitText(ctx context.Context, target Locator, text string) error {
	loc, err := p.locate(ctx, target)
	if err != nil {
		return err
	}
	if err := p.expect(ctx).Locator(loc).ToContainText(text); err != nil {
		return fmt.Errorf("%s does not contain %q: %w", target, text, err)
	}
	return nil
}

func (p *playwrightPage) WaitURL(ctx context.Context, pattern *regexp.Regexp) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.expect(ctx).Page(p.page).ToHaveURL(pattern); err != nil {
		return fmt.Errorf("url %q does not match %s: %w", p.page.URL(), pattern, err)
	}
	return nil
}

func (p *playwrightPage) URL(ctx context.Context) (string, error) {
	return p.page.URL(), nil
}

func (p *playwrightPage) Screenshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	png, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(true),
		Timeout:  playwright.Float(ms(ctx)),
	})
	if err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	return png, nil
}
