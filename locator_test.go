package storecheck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocatorString(t *testing.T) {
	tests := []struct {
		name string
		loc  Locator
		want string
	}{
		{"role with name", ByRole("heading", "Marketplace"), `role=heading[name="Marketplace"]`},
		{"role only", ByRole("dialog", ""), "role=dialog"},
		{"label", ByLabel("Email"), `label="Email"`},
		{"text", ByText("Payment Method"), `text="Payment Method"`},
		{"css first", ByCSS(`a[href^="/marketplace/"]`).FirstMatch(), `css=a[href^="/marketplace/"].first`},
		{"nested", ByText("MetaMask").In(ByRole("dialog", "")), `role=dialog >> text="MetaMask"`},
		{"empty", Locator{}, "<empty>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.loc.String())
		})
	}
}

func TestLocatorValidate(t *testing.T) {
	assert.NoError(t, ByRole("button", "Continue").validate())
	assert.Error(t, Locator{}.validate())
	assert.Error(t, Locator{Text: "a", CSS: "b"}.validate())
	assert.Error(t, Locator{Label: "Email", Name: "x"}.validate())
	assert.Error(t, ByText("x").In(Locator{}).validate())
	assert.True(t, Locator{}.IsZero())
	assert.False(t, ByCSS("h1").IsZero())
}

func TestLocatorQueryCSS(t *testing.T) {
	q, err := ByCSS("li").In(ByCSS("ul.cart")).Query()
	require.NoError(t, err)
	assert.False(t, q.XPath)
	assert.Equal(t, "ul.cart li", q.Selector)
	assert.False(t, q.First)

	// CSS cannot express "first match", so the query carries it.
	q, err = ByCSS(`a[href^="/marketplace/"]`).FirstMatch().Query()
	require.NoError(t, err)
	assert.Equal(t, `a[href^="/marketplace/"]`, q.Selector)
	assert.True(t, q.First)
	assert.True(t, q.Enabled().First)
}

func TestLocatorQueryText(t *testing.T) {
	q, err := ByText("Delivery Address").Query()
	require.NoError(t, err)
	assert.True(t, q.XPath)
	assert.Equal(t, "//*[text()[contains(normalize-space(.), 'Delivery Address')]]", q.Selector)
}

func TestLocatorQueryRole(t *testing.T) {
	q, err := ByRole("button", "Confirm Order").FirstMatch().Query()
	require.NoError(t, err)
	assert.True(t, q.XPath)
	assert.Contains(t, q.Selector, "self::button")
	assert.Contains(t, q.Selector, "@aria-label = 'Confirm Order'")
	assert.True(t, len(q.Selector) > 4 && q.Selector[0] == '(')
	assert.Contains(t, q.Selector, ")[1]")

	q, err = ByRole("tab", "").Query()
	require.NoError(t, err)
	assert.Equal(t, "//*[@role = 'tab']", q.Selector)
}

func TestLocatorQueryNested(t *testing.T) {
	q, err := ByText("MetaMask").In(ByRole("dialog", "")).Query()
	require.NoError(t, err)
	assert.True(t, q.XPath)
	assert.Equal(t, roleXPath("dialog")+"//*[text()[contains(normalize-space(.), 'MetaMask')]]", q.Selector)
}

func TestLocatorQueryRejectsMixedNesting(t *testing.T) {
	_, err := ByText("Add").In(ByCSS(".card")).Query()
	assert.ErrorContains(t, err, "cannot nest")
}

func TestQueryEnabled(t *testing.T) {
	q := Query{XPath: true, Selector: "//button"}.Enabled()
	assert.Equal(t, "(//button)[not(@disabled) and not(@aria-disabled = 'true')]", q.Selector)

	q = Query{Selector: "button.primary"}.Enabled()
	assert.False(t, q.XPath)
	assert.Equal(t, ":is(button.primary):not([disabled]):not([aria-disabled=true])", q.Selector)
}

func TestXPathLiteral(t *testing.T) {
	assert.Equal(t, "'Buy now'", xpathLiteral("Buy now"))
	assert.Equal(t, `"Don't stop"`, xpathLiteral("Don't stop"))
	assert.Equal(t, `concat('say "', "'", 'hi', "'", '"')`, xpathLiteral(`say "'hi'"`))
}
