package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"audiocloud/internal/codec"
	"audiocloud/internal/config"
	"audiocloud/internal/logging"
	"audiocloud/internal/model"
	"audiocloud/internal/taskspec"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	catalogOnce sync.Once
	catalog     model.Catalog
	catalogErr  error

	codecsOnce sync.Once
	codecs     *codec.Registry
	codecsErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureLogDir(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	if cfg == nil {
		def := config.Default()
		return &def
	}
	return cfg
}

// logger builds a logger that writes to the command's stderr.
func (c *commandContext) logger(w io.Writer) *slog.Logger {
	logger, err := logging.NewFromConfig(c.configValue(), w)
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

// catalogFor returns the catalog at override, or the configured one.
func (c *commandContext) catalogFor(override string) (model.Catalog, error) {
	if path := strings.TrimSpace(override); path != "" {
		expanded, err := config.ExpandPath(path)
		if err != nil {
			return nil, err
		}
		return model.LoadCatalog(expanded)
	}
	c.catalogOnce.Do(func() {
		c.catalog, c.catalogErr = model.LoadCatalog(c.configValue().Catalog.Path)
	})
	return c.catalog, c.catalogErr
}

func (c *commandContext) codecRegistry() (*codec.Registry, error) {
	c.codecsOnce.Do(func() {
		c.codecs, c.codecsErr = codec.NewRegistry()
	})
	return c.codecs, c.codecsErr
}

func (c *commandContext) readFile(path string, v any) error {
	registry, err := c.codecRegistry()
	if err != nil {
		return err
	}
	expanded, err := config.ExpandPath(strings.TrimSpace(path))
	if err != nil {
		return err
	}
	return registry.ReadFile(expanded, v)
}

func (c *commandContext) readSpec(path string) (*taskspec.TaskSpec, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("spec file is required")
	}
	spec := taskspec.New()
	if err := c.readFile(path, spec); err != nil {
		return nil, err
	}
	return spec, nil
}

func (c *commandContext) readChanges(path string) ([]taskspec.Modification, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("changes file is required")
	}
	var changes []taskspec.Change
	if err := c.readFile(path, &changes); err != nil {
		return nil, err
	}
	return taskspec.Modifications(changes), nil
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
