package service

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// LotSize is the number of shares per lot. IDX trades in lots of 100;
	// other markets can override this without a code change.
	LotSize int64 `envconfig:"LOT_SIZE" default:"100"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
