package storecheck

import (
	"fmt"
	"sort"
	"time"
)

// Built-in flows against the storefront. The three marketplace-to-checkout
// flows exercise different purchase buttons; which of them the current
// storefront still renders is not assumed here.
var builtinFlows = []Flow{
	marketplaceCheckoutFlow(),
	cartCheckoutFlow(),
	checkoutPageFlow(),
	merchantStoreFlow(),
	loginRedirectFlow(),
	registrationPageFlow(),
	walletSelectorFlow(),
	creditVerificationFlow(),
}

// Catalog indexes flows by name. Later flows replace earlier ones with the
// same name, so flow files can override built-ins.
type Catalog map[string]Flow

// NewCatalog builds a catalog of the built-in flows plus extra.
func NewCatalog(extra ...Flow) Catalog {
	c := make(Catalog, len(builtinFlows)+len(extra))
	for _, f := range builtinFlows {
		c[f.Name] = f
	}
	for _, f := range extra {
		c[f.Name] = f
	}
	return c
}

// Lookup returns the named flows in the order given. With no names it returns
// every flow sorted by name.
func (c Catalog) Lookup(names ...string) ([]Flow, error) {
	if len(names) == 0 {
		out := make([]Flow, 0, len(c))
		for _, f := range c {
			out = append(out, f)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return out, nil
	}
	out := make([]Flow, 0, len(names))
	for _, n := range names {
		f, ok := c[n]
		if !ok {
			return nil, fmt.Errorf("unknown flow %q", n)
		}
		out = append(out, f)
	}
	return out, nil
}

// productLink matches the product cards on the marketplace listing.
var productLink = ByCSS(`a[href^="/marketplace/"]`).FirstMatch()

func marketplaceCheckoutFlow() Flow {
	buyNow := ByRole("link", "Buy now, Pay later")
	return Flow{
		Name:        "marketplace-checkout",
		Description: "Marketplace listing to checkout review through Buy now, Pay later",
		Steps: []Step{
			Navigate("/marketplace", NetworkIdle()),
			ExpectVisible(ByRole("heading", "Marketplace")),
			Checkpoint("marketplace"),

			ExpectVisible(productLink),
			Click(productLink),
			ExpectURL(`/marketplace/[^/?#]+`),
			ExpectVisible(buyNow),
			Checkpoint("product-detail"),

			Click(buyNow),
			ExpectVisible(ByRole("heading", "Checkout")),
			ExpectVisible(ByText("Delivery Address")),
			Checkpoint("checkout-delivery"),

			Click(ByRole("button", "Confirm Address")),
			ExpectVisible(ByText("Payment Method")),
			Checkpoint("checkout-payment"),

			Click(ByRole("button", "Continue")),
			ExpectVisible(ByRole("heading", "Review")),
			ExpectVisible(ByRole("button", "Confirm Order")),
			Checkpoint("checkout-confirmation"),
		},
	}
}

func cartCheckoutFlow() Flow {
	return Flow{
		Name:        "cart-checkout",
		Description: "Marketplace listing to checkout through the shopping cart",
		Steps: []Step{
			Navigate("/marketplace", NetworkIdle()),
			ExpectVisible(ByRole("heading", "Marketplace")),
			Checkpoint("marketplace"),

			Click(productLink),
			ExpectURL(`/marketplace/[^/?#]+`),
			ExpectVisible(ByRole("button", "Add to Cart")),
			Checkpoint("product-detail"),

			Click(ByRole("button", "Add to Cart")),
			Navigate("/cart", NetworkIdle()),
			ExpectVisible(ByText("Shopping Cart")),
			ExpectVisible(ByRole("link", "Proceed to Checkout")),
			Checkpoint("cart"),

			Click(ByRole("link", "Proceed to Checkout")),
			ExpectURL(`/checkout`),
			ExpectVisible(ByText("Order Summary")),
			Checkpoint("checkout"),
		},
	}
}

func checkoutPageFlow() Flow {
	return Flow{
		Name:        "checkout-page",
		Description: "Checkout page renders for a product id",
		Steps: []Step{
			Navigate("/checkout?productId=123", Present(ByCSS("h1"))),
			Checkpoint("checkout-page"),
		},
	}
}

func merchantStoreFlow() Flow {
	return Flow{
		Name:        "merchant-store",
		Description: "Register a merchant, sign in, and inspect the store page",
		Steps: []Step{
			Navigate("/auth/merchant-register", WaitCondition{}),
			Fill(ByLabel("First Name"), "${first_name}"),
			Fill(ByLabel("Last Name"), "${last_name}"),
			Fill(ByLabel("Store Name"), "${store_name}"),
			Fill(ByLabel("Email"), "${email}"),
			Fill(ByLabel("Password"), "${password}"),
			ExpectEnabled(ByRole("button", "Register")),
			Click(ByRole("button", "Register")),
			ExpectVisible(ByText("Merchant registration successful!")),
			ExpectURL(`/auth/login`).WithTimeout(15 * time.Second),
			Checkpoint("registered"),

			Fill(ByLabel("Email").FirstMatch(), "${email}"),
			Fill(ByLabel("Password").FirstMatch(), "${password}"),
			ExpectEnabled(ByRole("button", "Sign In")),
			Click(ByRole("button", "Sign In")),
			ExpectVisible(ByText("Login successful!")),
			ExpectURL(`/dashboard`).WithTimeout(15 * time.Second),
			Checkpoint("signed-in"),

			Navigate("/merchant/store", WaitCondition{}),
			ExpectVisible(ByRole("heading", "My Store")),
			ExpectVisible(ByRole("heading", "Store Profile")),
			ExpectVisible(ByRole("heading", "Products")),
			ExpectVisible(ByRole("button", "Add Product")),
			Checkpoint("merchant-store"),
		},
	}
}

func loginRedirectFlow() Flow {
	return Flow{
		Name:        "login-redirect",
		Description: "Sign in with the seeded account lands on the dashboard",
		Steps: []Step{
			Navigate("/auth/login", WaitCondition{}),
			Fill(ByLabel("Email"), "${seed_email}"),
			Fill(ByLabel("Password"), "${seed_password}"),
			Click(ByRole("button", "Sign In")),
			ExpectURL(`/dashboard/?$`),
			ExpectVisible(ByRole("heading", "Kelo Dashboard")),
			Checkpoint("dashboard"),
		},
	}
}

func registrationPageFlow() Flow {
	return Flow{
		Name:        "registration-page",
		Description: "Buyer registration page renders",
		Steps: []Step{
			Navigate("/auth/register", WaitCondition{}),
			Checkpoint("register-page"),
		},
	}
}

func walletSelectorFlow() Flow {
	dialog := ByRole("dialog", "")
	return Flow{
		Name:        "wallet-selector",
		Description: "Connect Wallet opens the wallet selector dialog",
		Steps: []Step{
			Navigate("/dashboard/wallet", WaitCondition{}),
			ExpectVisible(ByRole("button", "Connect Wallet")),
			Click(ByRole("button", "Connect Wallet")),
			ExpectVisible(dialog),
			ExpectVisible(ByText("MetaMask").In(dialog)),
			ExpectVisible(ByText("WalletConnect").In(dialog)),
			ExpectVisible(ByText("Coinbase Wallet").In(dialog)),
			Checkpoint("wallet-selector"),
		},
	}
}

func creditVerificationFlow() Flow {
	return Flow{
		Name:        "credit-verification",
		Description: "Test login runs the zero-knowledge credit verification",
		Steps: []Step{
			Navigate("/test-login", WaitCondition{}),
			ExpectURL(`/credit$`),
			Click(ByText("Start Verification")),
			ExpectVisible(ByText("Generating ZK inputs...")),
			ExpectVisible(ByText("Generating ZK proof...")),
			ExpectVisible(ByText("Submitting ZK proof...")),
			ExpectVisible(ByText("Verification successful!")).WithTimeout(60 * time.Second),
			Checkpoint("credit-verified"),
		},
	}
}
