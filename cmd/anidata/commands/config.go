package commands

import (
	"errors"
	"os"

	"anidata-backend/lib/configutil"
	"anidata-backend/lib/util/serviceutil"
)

type Config struct {
	SiteUrl   string `json:"site_url"`
	ApiUrl    string `json:"api_url"`
	ClientId  string `json:"client_id"`
	UserAgent string `json:"user_agent"`
	OutputDir string `json:"output_dir"`
}

// readConfig loads config.json5 and fills in the defaults. Only client_id has
// no usable default, and only the API commands need it.
func readConfig() Config {
	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	if cfg.SiteUrl == "" {
		cfg.SiteUrl = "https://myanimelist.net"
	}
	if cfg.ApiUrl == "" {
		cfg.ApiUrl = "https://api.myanimelist.net/v2"
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "."
	}
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		serviceutil.Fatal("failed to create output directory", err)
	}
	return cfg
}

func (c Config) requireClientId() {
	if c.ClientId == "" {
		serviceutil.Fatal("config is missing client_id", errors.New("set client_id in config.json5"))
	}
}
