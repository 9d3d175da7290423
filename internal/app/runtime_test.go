package app

import (
	"testing"

	"github.com/stretchr/testify/assert"

	_ "github.com/humpahadi/humpahadi/testing"
)

func TestInTestModeFollowsEnvironment(t *testing.T) {
	RefreshTestMode()
	assert.True(t, InTestMode())

	t.Setenv(testModeEnv, "0")
	RefreshTestMode()
	assert.False(t, InTestMode())

	t.Setenv(testModeEnv, "1")
	RefreshTestMode()
	assert.True(t, InTestMode())
}

func TestLoadConfigRequiresSecrets(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("CSRF_SECRET", "")
	_, err := LoadConfig()
	assert.Error(t, err)

	t.Setenv("CSRF_SECRET", "c")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.test,https://b.test")
	cfg, err := LoadConfig()
	if assert.NoError(t, err) {
		assert.True(t, cfg.IsProduction())
		assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.CORSAllowedOrigins)
		assert.Equal(t, 120, cfg.RateLimitPerMinute)
	}
}
