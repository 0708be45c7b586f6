package main

import (
	"flag"

	"github.com/DjordjeVuckovic/grade-consensus/internal/storage/es"
	"github.com/DjordjeVuckovic/grade-consensus/pkg/utils"
)

type cliConfig struct {
	FixturePath string
	Output      string
	EsAddresses string
	EsIndex     string
	EsUsername  string
	EsPassword  string
	Verbose     bool
}

func parseFlags() cliConfig {
	cfg := cliConfig{}

	flag.StringVar(&cfg.FixturePath, "fixture", "configs/replay/biology_midterm.yaml", "Path to replay fixture YAML")
	flag.StringVar(&cfg.Output, "output", "", "Output path for the JSON report")
	flag.StringVar(&cfg.EsAddresses, "es-addresses", "", "Elasticsearch addresses, comma-separated; backfills the grading history index when set")
	flag.StringVar(&cfg.EsIndex, "es-index", "grading_history", "Elasticsearch history index name")
	flag.StringVar(&cfg.EsUsername, "es-username", "", "Elasticsearch username")
	flag.StringVar(&cfg.EsPassword, "es-password", "", "Elasticsearch password")
	flag.BoolVar(&cfg.Verbose, "v", false, "Enable debug logging")

	flag.Parse()
	return cfg
}

func (c cliConfig) historyConfig() *es.ClientConfig {
	addresses := utils.SplitTrim(c.EsAddresses, ",")
	if len(addresses) == 0 {
		return nil
	}
	return &es.ClientConfig{
		Addresses: addresses,
		IndexName: c.EsIndex,
		Username:  c.EsUsername,
		Password:  c.EsPassword,
	}
}
