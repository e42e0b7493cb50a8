package storecheck

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
)

// Credentials is the account a flow registers or signs in with. The seed
// account is one the storefront already has, for flows that sign in without
// registering first.
type Credentials struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	StoreName string

	SeedEmail    string
	SeedPassword string
}

// withSeed fills the seed account from STORECHECK_SEED_EMAIL and
// STORECHECK_SEED_PASSWORD, defaulting to the development storefront's
// seeded test user.
func (c Credentials) withSeed() Credentials {
	c.SeedEmail = getEnv("STORECHECK_SEED_EMAIL", "test@example.com")
	c.SeedPassword = getEnv("STORECHECK_SEED_PASSWORD", "password")
	return c
}

// GenerateCredentials returns a merchant account whose email has not been
// used by an earlier run, plus the seed account.
func GenerateCredentials() Credentials {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return Credentials{
		Email:     fmt.Sprintf("merchant-test-%s@example.com", id),
		Password:  "SecurePassword123",
		FirstName: "Test",
		LastName:  "Merchant",
		StoreName: "Test Store " + id,
	}.withSeed()
}

// CredentialsFromEnv reads STORECHECK_EMAIL, STORECHECK_PASSWORD,
// STORECHECK_FIRST_NAME, STORECHECK_LAST_NAME and STORECHECK_STORE_NAME.
// The defaults match the seeded test account of a development storefront.
func CredentialsFromEnv() Credentials {
	return Credentials{
		Email:     getEnv("STORECHECK_EMAIL", "test@example.com"),
		Password:  getEnv("STORECHECK_PASSWORD", "password"),
		FirstName: getEnv("STORECHECK_FIRST_NAME", "Test"),
		LastName:  getEnv("STORECHECK_LAST_NAME", "Merchant"),
		StoreName: getEnv("STORECHECK_STORE_NAME", "Test Store"),
	}.withSeed()
}

// ResolveCredentials returns the credential set named by Config.CredentialSet.
func ResolveCredentials(set string) (Credentials, error) {
	switch set {
	case CredentialsGenerated, "":
		return GenerateCredentials(), nil
	case CredentialsEnv:
		return CredentialsFromEnv(), nil
	default:
		return Credentials{}, fmt.Errorf("unknown credential set %q", set)
	}
}

// expand substitutes ${name} references in s. Unknown names are left as
// written so a typo shows up verbatim in the page and the log.
func (c Credentials) expand(s, baseURL string) string {
	if !strings.Contains(s, "$") {
		return s
	}
	return os.Expand(s, func(name string) string {
		switch name {
		case "email":
			return c.Email
		case "password":
			return c.Password
		case "first_name":
			return c.FirstName
		case "last_name":
			return c.LastName
		case "store_name":
			return c.StoreName
		case "seed_email":
			return c.SeedEmail
		case "seed_password":
			return c.SeedPassword
		case "base_url":
			return baseURL
		default:
			return "${" + name + "}"
		}
	})
}
