package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLoad(t *testing.T, files ...string) (*Config, error) {
	t.Helper()
	return loadConfig(aconfig.Config{
		SkipFlags: true,
		EnvPrefix: "VIREON",
		Files:     files,
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
}

func clearPlatformEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"DATABASE_URL", "JWT_SECRET", "PORT"} {
		t.Setenv(k, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearPlatformEnv(t)
	t.Setenv("VIREON_STORAGE", "memory")
	t.Setenv("VIREON_JWT_SECRET", "s3cret")

	cfg, err := testLoad(t)
	require.NoError(t, err)
	assert.Equal(t, defaultAddr, cfg.Addr)
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, 168*time.Hour, cfg.JWT.TTL)
	assert.Equal(t, "vireon", cfg.JWT.Issuer)
	assert.Equal(t, 8, cfg.Checkout.ValidationConcurrency)
	assert.Equal(t, 100, cfg.RateLimit.Max)
	assert.Equal(t, 15*time.Second, cfg.Graceful.ShutdownTimeout)
}

func TestLoadConfig_PlatformDefaults(t *testing.T) {
	clearPlatformEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/vireon")
	t.Setenv("JWT_SECRET", "platform")
	t.Setenv("PORT", "9090")

	cfg, err := testLoad(t)
	require.NoError(t, err)
	assert.Equal(t, StoragePostgres, cfg.Storage)
	assert.Equal(t, "postgres://localhost/vireon", cfg.DatabaseURL)
	assert.Equal(t, "platform", cfg.JWT.Secret)
	assert.Equal(t, "0.0.0.0:9090", cfg.Addr)
}

func TestLoadConfig_File(t *testing.T) {
	clearPlatformEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage: memory
jwt:
  secret: from-file
  ttl: 1h
checkout:
  validation_concurrency: 2
`), 0o600))

	cfg, err := testLoad(t, path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.JWT.Secret)
	assert.Equal(t, time.Hour, cfg.JWT.TTL)
	assert.Equal(t, 2, cfg.Checkout.ValidationConcurrency)
}

func TestLoadConfig_Invalid(t *testing.T) {
	for _, tt := range []struct {
		name string
		env  map[string]string
		msg  string
	}{
		{"NoDatabase", map[string]string{"VIREON_JWT_SECRET": "x"}, "database URL is required"},
		{"NoSecret", map[string]string{"VIREON_STORAGE": "memory"}, "JWT secret is required"},
		{"UnknownStorage", map[string]string{"VIREON_STORAGE": "redis", "VIREON_JWT_SECRET": "x"}, "unknown storage"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			clearPlatformEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := testLoad(t)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}
