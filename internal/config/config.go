// Package config loads the service configuration from file, .env and
// environment variables.
package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the resolved runtime configuration.
type Config struct {
	ListenAddr string

	RegistryURL  string
	GitHubAPIURL string
	GitHubToken  string
	OSVAPIURL    string
	SigstoreURL  string

	AuditTimeout time.Duration
	CallTimeout  time.Duration
	CacheTTL     time.Duration

	Debug bool
}

// Load resolves the configuration. Environment variables use the
// CHAINSAW_ prefix (CHAINSAW_GITHUB_TOKEN and so on); an optional .env
// file and an optional YAML config file feed the same keys.
func Load(cfgFile string) (*Config, error) {
	// .env is optional, missing files are not an error
	_ = godotenv.Load()

	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("chainsaw")
	}

	v.SetEnvPrefix("CHAINSAW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("listen_addr", ":8000")
	v.SetDefault("registry_url", "https://registry.npmjs.org")
	v.SetDefault("github_api_url", "https://api.github.com")
	v.SetDefault("github_token", "")
	v.SetDefault("osv_api_url", "https://api.osv.dev")
	v.SetDefault("sigstore_url", "https://registry.npmjs.org")
	v.SetDefault("audit_timeout", "10s")
	v.SetDefault("call_timeout", "5s")
	v.SetDefault("cache_ttl", "1h")
	v.SetDefault("debug", false)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			return nil, err
		}
	}

	return &Config{
		ListenAddr:   v.GetString("listen_addr"),
		RegistryURL:  v.GetString("registry_url"),
		GitHubAPIURL: v.GetString("github_api_url"),
		GitHubToken:  v.GetString("github_token"),
		OSVAPIURL:    v.GetString("osv_api_url"),
		SigstoreURL:  v.GetString("sigstore_url"),
		AuditTimeout: v.GetDuration("audit_timeout"),
		CallTimeout:  v.GetDuration("call_timeout"),
		CacheTTL:     v.GetDuration("cache_ttl"),
		Debug:        v.GetBool("debug"),
	}, nil
}
