package main

import (
	"flag"
)

type AppFlags struct {
	GlobalConfigFile string
	LogLevel         string
	NoServer         bool
}

func ParseFlags() AppFlags {
	globalConfigFile := flag.String("config", "", "Path to the global YAML/JSON configuration file. If not set, searches default locations.")
	globalConfigFileAlias := flag.String("c", "", "Alias for -config")

	logLevel := flag.String("log-level", "", "Override the configured log level (debug, info, warn, error)")
	noServer := flag.Bool("no-server", false, "Run the scheduler without the management HTTP API")

	flag.Parse()

	flags := AppFlags{
		LogLevel: *logLevel,
		NoServer: *noServer,
	}

	if *globalConfigFile != "" {
		flags.GlobalConfigFile = *globalConfigFile
	} else if *globalConfigFileAlias != "" {
		flags.GlobalConfigFile = *globalConfigFileAlias
	}

	return flags
}
