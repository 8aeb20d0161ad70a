package app

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "unit-test-secret")
	t.Setenv("APP_ENV", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "inventory", cfg.JWTIssuer)
	require.Equal(t, 3*time.Hour, cfg.JWTTTL)
	require.Equal(t, "USER", cfg.DefaultRole)
	require.Equal(t, 5, cfg.LoginMaxAttempts)
	require.False(t, cfg.IsProduction())

	pool := cfg.PoolConfig()
	require.Equal(t, cfg.PGDSN, pool.DSN)
	require.EqualValues(t, 10, pool.MaxConns)
	require.Equal(t, "127.0.0.1:6379", cfg.RedisOptions().Asynq().Addr)
}

func TestConfigValidate(t *testing.T) {
	cases := map[string]struct {
		cfg     Config
		wantErr string
	}{
		"missing secret": {
			cfg:     Config{JWTTTL: time.Hour},
			wantErr: "jwt secret",
		},
		"short production secret": {
			cfg:     Config{AppEnv: "production", JWTSecret: "short", JWTTTL: time.Hour},
			wantErr: "at least 32 bytes",
		},
		"zero ttl": {
			cfg:     Config{JWTSecret: "secret"},
			wantErr: "ttl",
		},
		"attempts without lockout": {
			cfg:     Config{JWTSecret: "secret", JWTTTL: time.Hour, LoginMaxAttempts: 3},
			wantErr: "lockout",
		},
		"throttle disabled": {
			cfg: Config{JWTSecret: "secret", JWTTTL: time.Hour},
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestNewLoggerHonoursLevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&Config{LogFormat: "json", LogLevel: "warn"}, &buf)
	logger.Info("hidden")
	logger.Warn("shown", slog.String("k", "v"))

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.True(t, strings.HasPrefix(out, "{"))
	require.Contains(t, out, `"k":"v"`)
}

func TestParseTestMode(t *testing.T) {
	for v, want := range map[string]bool{"1": true, "true": true, "": false, "0": false, "yes": false} {
		require.Equal(t, want, parseTestMode(v), v)
	}
}
