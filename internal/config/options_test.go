package config

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	o, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://pwd-week6-server-v2.onrender.com", o.APIURL)
	assert.Equal(t, "https://pwd-week6-server-v2.onrender.com/api/auth", o.AuthURL())
	assert.Equal(t, 10*time.Second, o.RequestTimeout)
	assert.Equal(t, 5*time.Minute, o.QueryStaleTime)
	assert.Equal(t, 1, o.QueryRetry)
	assert.True(t, o.IsProduction())
	assert.False(t, o.IsDevelopment())
	assert.Len(t, o.GetCookieSecret(), 32)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("FOODMAP_API_URL", "http://localhost:3000/")
	t.Setenv("FOODMAP_REQUEST_TIMEOUT", "3s")
	t.Setenv("NODE_ENV", "development")

	o, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000/api/auth", o.AuthURL())
	assert.Equal(t, 3*time.Second, o.RequestTimeout)
	assert.True(t, o.IsDevelopment())
}

func TestLoad_LegacyVite(t *testing.T) {
	t.Setenv("VITE_API_URL", "http://api.example.com")

	o, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://api.example.com", o.APIURL)
}

func TestLoad_File(t *testing.T) {
	secret := base64.StdEncoding.EncodeToString(make([]byte, 32))
	fn := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(fn, []byte(`
api_url: http://files.example.com
address: 127.0.0.1:9999
query_stale_time: 1m
cookie_secret: `+secret+`
`), 0o600))

	o, err := Load(fn)
	require.NoError(t, err)
	assert.Equal(t, "http://files.example.com", o.APIURL)
	assert.Equal(t, "127.0.0.1:9999", o.Addr)
	assert.Equal(t, time.Minute, o.QueryStaleTime)
	assert.Equal(t, make([]byte, 32), o.GetCookieSecret())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(o *Options)
		wantErr string
	}{
		{"good", func(_ *Options) {}, ""},
		{"relative api url", func(o *Options) { o.APIURL = "/api" }, "api_url"},
		{"bad client url", func(o *Options) { o.ClientURL = "nope" }, "client_url"},
		{"bad environment", func(o *Options) { o.Environment = "staging" }, "environment"},
		{"empty address", func(o *Options) { o.Addr = "" }, "address"},
		{"zero timeout", func(o *Options) { o.RequestTimeout = 0 }, "request_timeout"},
		{"negative retry", func(o *Options) { o.QueryRetry = -1 }, "query_retry"},
		{"relative login path", func(o *Options) { o.LoginPath = "login" }, "login_path"},
		{"short secret", func(o *Options) { o.CookieSecret = base64.StdEncoding.EncodeToString([]byte("short")) }, "cookie_secret"},
		{"bad secret", func(o *Options) { o.CookieSecret = "%%%" }, "cookie_secret"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewDefaultOptions()
			tt.mutate(o)
			err := o.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestOptions_ValidateCollectsAll(t *testing.T) {
	o := NewDefaultOptions()
	o.APIURL = ""
	o.Addr = ""
	err := o.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_url")
	assert.Contains(t, err.Error(), "address")
}
