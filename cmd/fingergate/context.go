package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"fingergate/internal/api"
	"fingergate/internal/config"
	"fingergate/internal/daemonrun"
	"fingergate/internal/logging"
)

type globalFlags struct {
	config  string
	remote  bool
	api     string
	token   string
	verbose bool
}

type commandContext struct {
	flags *globalFlags

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		path := strings.TrimSpace(c.flags.config)
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if path != "" && !exists {
			c.configErr = fmt.Errorf("config file %s not found", resolved)
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

func (c *commandContext) logger() *slog.Logger {
	cfg, _ := c.ensureConfig()
	logger, err := logging.NewCLI(cfg, c.flags.verbose)
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

func (c *commandContext) apiClient() (*api.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	bind := strings.TrimSpace(c.flags.api)
	if bind == "" {
		bind = cfg.Paths.APIBind
	}
	if bind == "" {
		return nil, errors.New("daemon API is disabled; set paths.api_bind or pass --api")
	}
	token := strings.TrimSpace(c.flags.token)
	if token == "" {
		token = cfg.Paths.APIToken
	}
	return api.NewClient(bind, token), nil
}

// openBackend returns the daemon API backend with --remote, otherwise a local
// session over the configured store and engine.
func (c *commandContext) openBackend() (backend, error) {
	if c.flags.remote {
		client, err := c.apiClient()
		if err != nil {
			return nil, err
		}
		return &remoteBackend{client: client}, nil
	}
	rt, err := c.openRuntime()
	if err != nil {
		return nil, err
	}
	return &localBackend{rt: rt}, nil
}

func (c *commandContext) openRuntime() (*daemonrun.Runtime, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return daemonrun.Open(cfg, c.logger())
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
