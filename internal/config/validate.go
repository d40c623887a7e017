package config

import (
	"fmt"
	"os"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCatalog(); err != nil {
		return err
	}
	if err := c.validateEngine(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateCatalog() error {
	if c.Catalog.Path == "" {
		return nil
	}
	info, err := os.Stat(c.Catalog.Path)
	if err != nil {
		return fmt.Errorf("catalog.path %q: %w", c.Catalog.Path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("catalog.path %q is a directory", c.Catalog.Path)
	}
	return nil
}

func (c *Config) validateEngine() error {
	switch c.Engine.WireFormat {
	case "json", "cbor":
		return nil
	default:
		return fmt.Errorf("engine.wire_format: unsupported value %q (want json or cbor)", c.Engine.WireFormat)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
