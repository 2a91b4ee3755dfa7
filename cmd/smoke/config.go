package smoke

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	BaseURL string `envconfig:"SMOKE_BASE_URL" default:"http://localhost:8000"`
	Timeout int    `envconfig:"SMOKE_TIMEOUT_SECONDS" default:"10"`
}

func GetConfig() *Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return &config
}
