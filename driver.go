package storecheck

import (
	"context"
	"fmt"
	"regexp"

	"go.uber.org/zap"
)

// Driver opens isolated browser sessions on one automation engine.
// Close releases whatever the driver keeps running between sessions.
type Driver interface {
	Name() string
	NewSession(ctx context.Context) (Session, error)
	Close() error
}

// Session is an isolated browser context. Closing it discards its cookies,
// storage and pages.
type Session interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is one tab of a Session. Every wait is bounded by the deadline of ctx.
type Page interface {
	// Navigate loads url and blocks until wait is satisfied.
	Navigate(ctx context.Context, url string, wait WaitCondition) error
	Click(ctx context.Context, target Locator) error
	Fill(ctx context.Context, target Locator, value string) error
	WaitVisible(ctx context.Context, target Locator) error
	WaitEnabled(ctx context.Context, target Locator) error
	WaitText(ctx context.Context, target Locator, text string) error
	WaitURL(ctx context.Context, pattern *regexp.Regexp) error
	URL(ctx context.Context) (string, error)
	// Screenshot returns a full-page PNG.
	Screenshot(ctx context.Context) ([]byte, error)
}

// NewDriver builds the driver named by cfg.Driver. Engines start lazily on
// the first NewSession.
func NewDriver(cfg Config, logger *zap.Logger) (Driver, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Driver {
	case DriverPlaywright, "":
		return NewPlaywrightDriver(cfg, logger), nil
	case DriverRod:
		return NewRodDriver(cfg, logger), nil
	case DriverChromedp:
		return NewChromedpDriver(cfg, logger), nil
	case DriverFleet:
		return NewFleetDriver(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown driver %q", cfg.Driver)
	}
}

// waitTextIn polls read until it contains text, so engines without a
// text-aware wait share one implementation.
func waitTextIn(ctx context.Context, target Locator, text string, read func() (string, error)) error {
	var got string
	err := poll(ctx, func() (bool, error) {
		s, err := read()
		if err != nil {
			return false, err
		}
		got = s
		return containsFold(s, text), nil
	})
	if err != nil {
		return fmt.Errorf("%s does not contain %q (last text %q): %w", target, text, got, err)
	}
	return nil
}

func waitURLMatch(ctx context.Context, pattern *regexp.Regexp, read func() (string, error)) error {
	var got string
	err := poll(ctx, func() (bool, error) {
		u, err := read()
		if err != nil {
			return false, err
		}
		got = u
		return pattern.MatchString(u), nil
	})
	if err != nil {
		return fmt.Errorf("url %q does not match %s: %w", got, pattern, err)
	}
	return nil
}
