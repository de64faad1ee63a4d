package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// E2E_BASE_URL points at a running server, e.g. http://localhost:8080.
	// Leaving it empty skips the suite.
	BaseURL string `envconfig:"E2E_BASE_URL"`
	// E2E_WS_URL is the websocket endpoint, e.g. ws://localhost:8080/ws
	WSURL string `envconfig:"E2E_WS_URL"`
	// E2E_DEBUG_JSON allows dumping full request/response bodies
	DebugJSON bool `envconfig:"E2E_DEBUG_JSON" default:"false"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
