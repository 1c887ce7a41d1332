package main

import (
	"context"
	"fmt"
	"os"

	"fingergate/internal/config"
	"fingergate/internal/daemonrun"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "fingergated: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}
	cfg, path, exists, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.configPath != "" && !exists {
		return fmt.Errorf("config file %s not found", path)
	}
	return daemonrun.Run(ctx, cfg, opts.runtime)
}
