package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func Test_parseEnv(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"DB_URL=postgres://from-file\n"+
			"SECRET_KEY_JWT=file-secret\n"+
			"ALGORITHM=HS512\n"+
			"MAIL_PORT=2525\n"+
			"EMAIL_TOKEN_TTL=12h\n"), 0o600))

	t.Run("process env wins over file", func(t *testing.T) {
		os.Args = []string{"testbin", "-env", envFile}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseEnv(cfg, lookupFrom(map[string]string{
			"SECRET_KEY_JWT": "env-secret",
			"REDIS_ADDR":     "redis:6379",
		}))

		assert.Equal(t, "postgres://from-file", cfg.DatabaseDSN)
		assert.Equal(t, "env-secret", cfg.SecretKey)
		assert.Equal(t, "HS512", cfg.Algorithm)
		assert.Equal(t, 2525, cfg.SMTPPort)
		assert.Equal(t, 12*time.Hour, cfg.EmailTokenValidityDuration)
		assert.Equal(t, "redis:6379", cfg.RedisAddr)
	})

	t.Run("missing default file is fine", func(t *testing.T) {
		os.Args = []string{"testbin"}
		cwd, err := os.Getwd()
		require.NoError(t, err)
		require.NoError(t, os.Chdir(dir))
		t.Cleanup(func() { _ = os.Chdir(cwd) })

		cfg := &Config{SecretKey: "keep"}
		require.NotPanics(t, func() { parseEnv(cfg, lookupFrom(nil)) })
		assert.Equal(t, "keep", cfg.SecretKey)
	})

	t.Run("missing explicit file panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-env", filepath.Join(dir, "nope.env")}
		require.Panics(t, func() { parseEnv(&Config{}, lookupFrom(nil)) })
	})

	t.Run("bad number panics", func(t *testing.T) {
		os.Args = []string{"testbin"}
		require.Panics(t, func() {
			parseEnv(&Config{}, lookupFrom(map[string]string{"MAIL_WORKERS": "many"}))
		})
	})
}
