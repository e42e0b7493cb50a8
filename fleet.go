package storecheck

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// FleetDriver runs sessions on browsers leased from an isoFleet worker pool.
// A session is one leased browser, so it holds exactly one page.
type FleetDriver struct {
	rdb         *redis.Client
	browserType string
	logger      *zap.Logger
}

func NewFleetDriver(cfg Config, logger *zap.Logger) (*FleetDriver, error) {
	rdb, err := NewRedisClient(cfg)
	if err != nil {
		return nil, err
	}
	return newFleetDriver(rdb, cfg.BrowserType, logger), nil
}

func newFleetDriver(rdb *redis.Client, browserType string, logger *zap.Logger) *FleetDriver {
	if browserType == "" {
		browserType = DefaultBrowserType
	}
	return &FleetDriver{rdb: rdb, browserType: browserType, logger: logger}
}

func (d *FleetDriver) Name() string { return DriverFleet }

func (d *FleetDriver) NewSession(ctx context.Context) (Session, error) {
	client := NewClient(d.rdb, d.logger)
	if err := client.Acquire(ctx, d.browserType); err != nil {
		return nil, err
	}
	return &fleetSession{client: client}, nil
}

func (d *FleetDriver) Close() error {
	return d.rdb.Close()
}

type fleetSession struct {
	client *Client
	page   *fleetPage
}

func (s *fleetSession) NewPage(ctx context.Context) (Page, error) {
	if s.page != nil {
		return nil, NewBrowserError("fleet sessions hold a single page")
	}
	s.page = &fleetPage{client: s.client}
	return s.page, nil
}

func (s *fleetSession) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultRPCWait)
	defer cancel()
	return s.client.Release(ctx)
}

type fleetPage struct {
	client *Client
}

func (p *fleetPage) Navigate(ctx context.Context, url string, wait WaitCondition) error {
	if err := p.client.OpenURL(ctx, url); err != nil {
		return err
	}
	if wait.NetworkIdle {
		if err := p.client.WaitForNetworkIdle(ctx); err != nil {
			return err
		}
	}
	if wait.Selector != nil {
		return p.WaitVisible(ctx, *wait.Selector)
	}
	return nil
}

func (p *fleetPage) Click(ctx context.Context, target Locator) error {
	q, err := target.Query()
	if err != nil {
		return err
	}
	return p.client.Click(ctx, q.Selector)
}

func (p *fleetPage) Fill(ctx context.Context, target Locator, value string) error {
	q, err := target.Query()
	if err != nil {
		return err
	}
	return p.client.Type(ctx, q.Selector, value)
}

func (p *fleetPage) WaitVisible(ctx context.Context, target Locator) error {
	q, err := target.Query()
	if err != nil {
		return err
	}
	return p.client.WaitForElement(ctx, q.Selector)
}

func (p *fleetPage) WaitEnabled(ctx context.Context, target Locator) error {
	q, err := target.Query()
	if err != nil {
		return err
	}
	return p.client.WaitForElement(ctx, q.Enabled().Selector)
}

func (p *fleetPage) WaitText(ctx context.Context, target Locator, text string) error {
	q, err := target.Query()
	if err != nil {
		return err
	}
	if err := p.client.WaitForText(ctx, text, q.Selector); err != nil {
		return fmt.Errorf("%s does not contain %q: %w", target, text, err)
	}
	return nil
}

// WaitURL polls with short commands so each one finishes well inside ctx.
func (p *fleetPage) WaitURL(ctx context.Context, pattern *regexp.Regexp) error {
	return waitURLMatch(ctx, pattern, func() (string, error) {
		cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return p.client.GetCurrentURL(cctx)
	})
}

func (p *fleetPage) URL(ctx context.Context) (string, error) {
	return p.client.GetCurrentURL(ctx)
}

func (p *fleetPage) Screenshot(ctx context.Context) ([]byte, error) {
	return p.client.Screenshot(ctx)
}
