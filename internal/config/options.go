// Package config loads the foodmap client's options from the environment and
// an optional configuration file.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/gorilla/securecookie"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/viper"
)

// Environment modes, mirroring NODE_ENV.
const (
	EnvironmentDevelopment = "development"
	EnvironmentProduction  = "production"
)

// EnvPrefix is prepended to every option's environment variable.
const EnvPrefix = "FOODMAP_"

// Options are the environmental flags used to set up the foodmap client.
type Options struct {
	// APIURL is the root of the remote food-map API. The identity service
	// lives under APIURL + "/api/auth".
	APIURL string `mapstructure:"api_url"`

	// ClientURL is the public URL of the deployed browser client. It is only
	// validated and reported in the startup log.
	ClientURL string `mapstructure:"client_url"`

	// Environment is either "development" or "production".
	Environment string `mapstructure:"environment"`

	// Addr specifies the host and port the local web client listens on.
	Addr string `mapstructure:"address"`

	// MetricsAddr, if set, serves prometheus metrics on a separate listener.
	MetricsAddr string `mapstructure:"metrics_address"`

	// RequestTimeout bounds every call to the remote API.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	// LogLevel sets the global log level. One of "debug", "info", "warn", "error".
	LogLevel string `mapstructure:"log_level"`

	// CookieSecret is a base64 encoded 32 byte key used to sign the client's
	// own CSRF and flash cookies. A random key is generated when empty.
	CookieSecret string `mapstructure:"cookie_secret"`

	// QueryStaleTime is how long restaurant reads are served from cache.
	QueryStaleTime time.Duration `mapstructure:"query_stale_time"`

	// QueryRetry is how many times a failed restaurant read is retried.
	QueryRetry int `mapstructure:"query_retry"`

	// LoginPath is the login entry point that guards and session expiry
	// redirect to.
	LoginPath string `mapstructure:"login_path"`

	viper        *viper.Viper
	cookieSecret []byte
}

var defaultOptions = Options{
	APIURL:         "https://pwd-week6-server-v2.onrender.com",
	ClientURL:      "https://pwd-week6-client-delta.vercel.app",
	Environment:    EnvironmentProduction,
	Addr:           "127.0.0.1:5173",
	RequestTimeout: 10 * time.Second,
	LogLevel:       "info",
	QueryStaleTime: 5 * time.Minute,
	QueryRetry:     1,
	LoginPath:      "/login",
}

// legacyEnvs are the variable names the browser build read its settings from.
var legacyEnvs = map[string]string{
	"api_url":     "VITE_API_URL",
	"client_url":  "VITE_CLIENT_URL",
	"environment": "NODE_ENV",
}

// NewDefaultOptions returns a copy the default options. It's the caller's
// responsibility to do a follow up Validate call.
func NewDefaultOptions() *Options {
	o := defaultOptions
	o.viper = viper.New()
	return &o
}

// Load builds the options by parsing environmental variables and, when
// configFile is not empty, the config file.
func Load(configFile string) (*Options, error) {
	o := NewDefaultOptions()
	v := o.viper
	if err := bindEnvs(v); err != nil {
		return nil, fmt.Errorf("config: failed to bind options to env vars: %w", err)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(o, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.TextUnmarshallerHookFunc(),
	))); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal config: %w", err)
	}
	// This is necessary because v.Unmarshal will overwrite .viper field.
	o.viper = v

	if err := o.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation error: %w", err)
	}
	return o, nil
}

// bindEnvs adds a Viper environment variable binding for each field in the
// Options struct, based on the mapstructure tag.
func bindEnvs(v *viper.Viper) error {
	t := reflect.TypeOf(Options{})
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag, hasTag := field.Tag.Lookup("mapstructure")
		if !hasTag || tag == "-" {
			continue
		}
		key, _, _ := strings.Cut(tag, ",")
		envs := []string{EnvPrefix + strings.ToUpper(key)}
		if legacy, ok := legacyEnvs[key]; ok {
			envs = append(envs, legacy)
		}
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("failed to bind field '%s' to env var '%s': %w", field.Name, envs[0], err)
		}
	}
	return nil
}

// Validate ensures the Options fields are valid, and hydrated.
func (o *Options) Validate() error {
	var result *multierror.Error

	if _, err := parseAbsoluteURL(o.APIURL); err != nil {
		result = multierror.Append(result, fmt.Errorf("api_url: %w", err))
	}
	if o.ClientURL != "" {
		if _, err := parseAbsoluteURL(o.ClientURL); err != nil {
			result = multierror.Append(result, fmt.Errorf("client_url: %w", err))
		}
	}
	switch o.Environment {
	case EnvironmentDevelopment, EnvironmentProduction:
	case "":
		o.Environment = EnvironmentProduction
	default:
		result = multierror.Append(result, fmt.Errorf("environment: %q is not one of %q or %q",
			o.Environment, EnvironmentDevelopment, EnvironmentProduction))
	}
	if o.Addr == "" {
		result = multierror.Append(result, errors.New("address: must not be empty"))
	}
	if o.RequestTimeout <= 0 {
		result = multierror.Append(result, errors.New("request_timeout: must be positive"))
	}
	if o.QueryStaleTime < 0 {
		result = multierror.Append(result, errors.New("query_stale_time: must not be negative"))
	}
	if o.QueryRetry < 0 {
		result = multierror.Append(result, errors.New("query_retry: must not be negative"))
	}
	if !strings.HasPrefix(o.LoginPath, "/") {
		result = multierror.Append(result, fmt.Errorf("login_path: %q must be an absolute path", o.LoginPath))
	}

	if o.CookieSecret == "" {
		o.cookieSecret = securecookie.GenerateRandomKey(32)
	} else {
		secret, err := base64.StdEncoding.DecodeString(o.CookieSecret)
		switch {
		case err != nil:
			result = multierror.Append(result, fmt.Errorf("cookie_secret: invalid base64: %w", err))
		case len(secret) != 32:
			result = multierror.Append(result, fmt.Errorf("cookie_secret: want 32 bytes, got %d", len(secret)))
		default:
			o.cookieSecret = secret
		}
	}

	return result.ErrorOrNil()
}

// GetCookieSecret returns the decoded (or generated) cookie secret. Validate
// must have been called first.
func (o *Options) GetCookieSecret() []byte {
	return o.cookieSecret
}

// IsDevelopment reports whether the client runs in development mode.
func (o *Options) IsDevelopment() bool {
	return o.Environment == EnvironmentDevelopment
}

// IsProduction reports whether the client runs in production mode.
func (o *Options) IsProduction() bool {
	return o.Environment == EnvironmentProduction
}

// AuthURL returns the base URL of the identity service.
func (o *Options) AuthURL() string {
	return strings.TrimSuffix(o.APIURL, "/") + "/api/auth"
}

func parseAbsoluteURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%q is not an absolute url", raw)
	}
	return u, nil
}
