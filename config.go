package apphistory

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the deployment-level settings the SDK needs beyond the
// access token: which data center to talk to and where the attachment
// download proxy lives. Values load from APPHISTORY_-prefixed environment
// variables and can be overridden with options.
type Config struct {
	// DataCenter selects the CRM API origin ("US", "EU", "AU", "IN",
	// "CN", "JP").
	DataCenter string `envconfig:"DATA_CENTER" default:"AU"`

	// DownloadProxyURL serves attachment downloads on the SDK's behalf.
	DownloadProxyURL string `envconfig:"DOWNLOAD_PROXY_URL"`

	// AccessTokenURL is forwarded to the download proxy so it can mint a
	// token for the file fetch.
	AccessTokenURL string `envconfig:"ACCESS_TOKEN_URL"`

	HTTPTimeout time.Duration `envconfig:"HTTP_TIMEOUT" default:"30s"`
}

// LoadConfig reads Config from APPHISTORY_-prefixed environment variables.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("APPHISTORY", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
