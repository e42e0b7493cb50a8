package storecheck

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMillisecondTimeout(t *testing.T) {
	assert.Equal(t, float64(DefaultStepTimeout/time.Millisecond), ms(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()
	got := ms(ctx)
	assert.Greater(t, got, float64(59*time.Minute/time.Millisecond))

	// Playwright reads 0 as "wait forever".
	short, cancelShort := context.WithTimeout(context.Background(), 500*time.Microsecond)
	defer cancelShort()
	assert.GreaterOrEqual(t, ms(short), 1.0)

	expired, cancelExpired := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancelExpired()
	assert.Equal(t, 1.0, ms(expired))
}

func TestPlaywrightPageStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The page is never touched once ctx is done.
	p := &playwrightPage{}
	assert.ErrorIs(t, p.Navigate(ctx, "http://localhost:3000/", NetworkIdle()), context.Canceled)
	assert.ErrorIs(t, p.Click(ctx, ByText("Continue")), context.Canceled)
	assert.ErrorIs(t, p.Fill(ctx, ByLabel("Email"), "a@b.c"), context.Canceled)
	assert.ErrorIs(t, p.WaitVisible(ctx, ByText("MetaMask").In(ByRole("dialog", ""))), context.Canceled)
	assert.ErrorIs(t, p.WaitEnabled(ctx, ByRole("button", "Register")), context.Canceled)
	assert.ErrorIs(t, p.WaitText(ctx, ByCSS(".total"), "$"), context.Canceled)
	assert.ErrorIs(t, p.WaitURL(ctx, regexp.MustCompile(`/dashboard`)), context.Canceled)
	_, err := p.Screenshot(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
