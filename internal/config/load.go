package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPath = "./config/config.yaml"
	envFile     = ".env.local"
)

type yamlConfig struct {
	Backend struct {
		BaseURL       string  `yaml:"base_url"`
		Timeout       string  `yaml:"timeout"`
		RatePerSecond float64 `yaml:"rate_per_second"`
		Burst         int     `yaml:"burst"`
	} `yaml:"backend"`
	Slot struct {
		Kind string `yaml:"kind"`
		Path string `yaml:"path"`
	} `yaml:"slot"`
	Web struct {
		Port int `yaml:"port"`
	} `yaml:"web"`
}

// Load starts from the defaults, overlays the yaml file at path (a missing
// file is not an error) and then the environment.
func Load(path string) (*Config, error) {
	cfg, err := New()
	if err != nil {
		return nil, err
	}

	if err := cfg.readFile(path); err != nil {
		return nil, err
	}

	_ = godotenv.Load(envFile)
	if err := cfg.readEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	if path == "" {
		return nil
	}

	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	var y yamlConfig
	if err := yaml.Unmarshal(b, &y); err != nil {
		return err
	}

	if y.Backend.BaseURL != "" {
		c.Backend.BaseURL = y.Backend.BaseURL
	}
	if y.Backend.Timeout != "" {
		d, err := time.ParseDuration(y.Backend.Timeout)
		if err != nil {
			return err
		}
		c.Backend.Timeout = d
	}
	if y.Backend.RatePerSecond != 0 {
		c.Backend.RatePerSecond = y.Backend.RatePerSecond
	}
	if y.Backend.Burst != 0 {
		c.Backend.Burst = y.Backend.Burst
	}
	if y.Slot.Kind != "" {
		c.Slot.Kind = SlotKind(y.Slot.Kind)
	}
	if y.Slot.Path != "" {
		c.Slot.Path = y.Slot.Path
	}
	if y.Web.Port != 0 {
		c.Web.Port = y.Web.Port
	}
	return nil
}

func (c *Config) readEnv() error {
	if v := os.Getenv("COURSEDESK_BACKEND_URL"); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv("COURSEDESK_SLOT"); v != "" {
		c.Slot.Kind = SlotKind(v)
	}
	if v := os.Getenv("COURSEDESK_SLOT_PATH"); v != "" {
		c.Slot.Path = v
	}
	if v := os.Getenv("COURSEDESK_WEB_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		c.Web.Port = p
	}
	return nil
}
