package main

import (
	"flag"

	"fingergate/internal/daemonrun"
)

type options struct {
	configPath string
	runtime    daemonrun.Options
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("fingergated", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "", "Configuration file path")
	fs.StringVar(&opts.runtime.LogLevel, "log-level", "", "Override the configured log level")
	fs.BoolVar(&opts.runtime.Development, "dev", false, "Include source locations in logs")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	return opts, nil
}
