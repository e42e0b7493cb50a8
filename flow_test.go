package storecheck

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinFlowsAreValid(t *testing.T) {
	seen := make(map[string]bool)
	for _, f := range builtinFlows {
		t.Run(f.Name, func(t *testing.T) {
			require.NoError(t, f.Validate())
			assert.NotEmpty(t, f.Description)
			assert.NotEmpty(t, f.Checkpoints())
		})
		assert.False(t, seen[f.Name], "duplicate flow %s", f.Name)
		seen[f.Name] = true
	}
}

func TestMarketplaceCheckoutCheckpoints(t *testing.T) {
	assert.Equal(t, []string{
		"marketplace",
		"product-detail",
		"checkout-delivery",
		"checkout-payment",
		"checkout-confirmation",
	}, marketplaceCheckoutFlow().Checkpoints())
}

func TestFlowValidate(t *testing.T) {
	nav := Navigate("/", WaitCondition{})
	tests := []struct {
		name string
		flow Flow
		want string
	}{
		{"missing name", Flow{Steps: []Step{nav}}, "missing name"},
		{"no steps", Flow{Name: "x"}, "no steps"},
		{"first step not navigate", Flow{Name: "x", Steps: []Step{Checkpoint("a")}}, "first step must be navigate"},
		{"empty path", Flow{Name: "x", Steps: []Step{{Kind: StepNavigate}}}, "missing path"},
		{"bad locator", Flow{Name: "x", Steps: []Step{nav, Click(Locator{})}}, "exactly one of"},
		{"expect text without value", Flow{Name: "x", Steps: []Step{nav, {Kind: StepExpectText, Target: ByCSS("h1")}}}, "missing value"},
		{"bad pattern", Flow{Name: "x", Steps: []Step{nav, ExpectURL("(")}}, "expect_url"},
		{"unnamed checkpoint", Flow{Name: "x", Steps: []Step{nav, {Kind: StepCheckpoint}}}, "missing name"},
		{"duplicate checkpoint", Flow{Name: "x", Steps: []Step{nav, Checkpoint("Cart"), Checkpoint("cart")}}, "duplicate checkpoint"},
		{"unknown kind", Flow{Name: "x", Steps: []Step{nav, {Kind: "hover"}}}, "unknown kind"},
		{"negative timeout", Flow{Name: "x", Steps: []Step{nav.WithTimeout(-time.Second)}}, "negative timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.flow.Validate()
			require.ErrorIs(t, err, ErrInvalidFlow)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestStepConstructorsName(t *testing.T) {
	assert.Equal(t, "navigate /cart", Navigate("/cart", NetworkIdle()).Name)
	assert.Equal(t, `click role=button[name="Continue"]`, Click(ByRole("button", "Continue")).Name)
	assert.Equal(t, `expect text="Total" contains "$10"`, ExpectText(ByText("Total"), "$10").Name)
	assert.Equal(t, "cart", Checkpoint("cart").Name)

	p := Present(ByCSS("h1"))
	require.NotNil(t, p.Selector)
	assert.Equal(t, "h1", p.Selector.CSS)
	assert.True(t, NetworkIdle().NetworkIdle)
}

func TestCatalogLookup(t *testing.T) {
	c := NewCatalog()

	all, err := c.Lookup()
	require.NoError(t, err)
	require.Len(t, all, len(builtinFlows))
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].Name, all[i].Name)
	}

	flows, err := c.Lookup("wallet-selector", "checkout-page")
	require.NoError(t, err)
	require.Len(t, flows, 2)
	assert.Equal(t, "wallet-selector", flows[0].Name)
	assert.Equal(t, "checkout-page", flows[1].Name)

	_, err = c.Lookup("checkout-page", "nope")
	assert.EqualError(t, err, `unknown flow "nope"`)
}

func TestCatalogExtraOverridesBuiltin(t *testing.T) {
	custom := Flow{
		Name:  "checkout-page",
		Steps: []Step{Navigate("/checkout?productId=9", WaitCondition{}), Checkpoint("custom")},
	}
	c := NewCatalog(custom, Flow{Name: "extra", Steps: []Step{Navigate("/", WaitCondition{}), Checkpoint("home")}})

	flows, err := c.Lookup("checkout-page", "extra")
	require.NoError(t, err)
	assert.Equal(t, []string{"custom"}, flows[0].Checkpoints())
	assert.Len(t, c, len(builtinFlows)+1)
}
