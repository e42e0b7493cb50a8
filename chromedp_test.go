package storecheck

import (
	"reflect"
	"testing"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sameQueryOption(a, b chromedp.QueryOption) bool {
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}

func TestChromedpQueryStrategy(t *testing.T) {
	q, err := productLink.Query()
	require.NoError(t, err)
	assert.True(t, sameQueryOption(chromedp.ByQuery, by(q)), "first css match resolves one node")
	assert.True(t, sameQueryOption(chromedp.ByQuery, by(q.Enabled())))

	q, err = ByCSS("h1").Query()
	require.NoError(t, err)
	assert.True(t, sameQueryOption(chromedp.BySearch, by(q)))

	q, err = ByRole("button", "Continue").FirstMatch().Query()
	require.NoError(t, err)
	assert.True(t, sameQueryOption(chromedp.BySearch, by(q)))
}
