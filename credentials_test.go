package storecheck

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCredentialsAreUnique(t *testing.T) {
	emailRe := regexp.MustCompile(`^merchant-test-[0-9a-f]{8}@example\.com$`)
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		c := GenerateCredentials()
		assert.Regexp(t, emailRe, c.Email)
		assert.False(t, seen[c.Email], "email %s generated twice", c.Email)
		seen[c.Email] = true
	}
}

func TestCredentialsFromEnv(t *testing.T) {
	t.Setenv("STORECHECK_EMAIL", "qa@shop.test")
	t.Setenv("STORECHECK_PASSWORD", "")

	c, err := ResolveCredentials(CredentialsEnv)
	require.NoError(t, err)
	assert.Equal(t, "qa@shop.test", c.Email)
	assert.Equal(t, "password", c.Password)

	_, err = ResolveCredentials("vault")
	assert.ErrorContains(t, err, `unknown credential set "vault"`)
}

func TestCredentialsExpand(t *testing.T) {
	c := Credentials{Email: "a@b.c", Password: "pw", FirstName: "Ada", LastName: "L", StoreName: "Ada's"}

	assert.Equal(t, "a@b.c", c.expand("${email}", ""))
	assert.Equal(t, "Ada L / Ada's", c.expand("${first_name} ${last_name} / ${store_name}", ""))
	assert.Equal(t, "http://x/login?u=a@b.c", c.expand("${base_url}/login?u=$email", "http://x"))
	assert.Equal(t, "${otp}", c.expand("${otp}", ""))
	assert.Equal(t, "plain", c.expand("plain", ""))
}

func TestSeedAccountIsIndependentOfCredentialSet(t *testing.T) {
	unsetEnv(t, "STORECHECK_SEED_EMAIL")
	t.Setenv("STORECHECK_SEED_PASSWORD", "s3cret")

	generated := GenerateCredentials()
	assert.Equal(t, "test@example.com", generated.SeedEmail)
	assert.Equal(t, "s3cret", generated.SeedPassword)
	assert.NotEqual(t, generated.Email, generated.SeedEmail)

	fromEnv := CredentialsFromEnv()
	assert.Equal(t, "test@example.com", fromEnv.SeedEmail)
	assert.Equal(t, "test@example.com / s3cret", fromEnv.expand("${seed_email} / ${seed_password}", ""))
}
