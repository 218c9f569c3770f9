package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

type Mode string

const (
	ModeWeb   Mode = "web"
	ModeShell Mode = "shell"
)

type SlotKind string

const (
	SlotBolt   SlotKind = "bolt"
	SlotJSON   SlotKind = "json"
	SlotMemory SlotKind = "memory"
)

type Config struct {
	Backend Backend
	Slot    Slot
	Web     Web
}

type Backend struct {
	BaseURL string
	Timeout time.Duration
	// RatePerSecond caps outgoing requests; zero disables the limiter.
	RatePerSecond float64
	Burst         int
}

// Slot is where the session token, role and user id are persisted between
// runs.
type Slot struct {
	Kind SlotKind
	Path string
}

type Web struct {
	Port int
}

var (
	errMissingBaseURL = errors.New("backend base url is required")
	errUnknownSlot    = errors.New("unknown slot kind")
)

func New() (*Config, error) {
	return &Config{
		Backend: Backend{
			BaseURL:       "http://localhost:5000",
			Timeout:       15 * time.Second,
			RatePerSecond: 10,
			Burst:         5,
		},
		Slot: Slot{
			Kind: SlotBolt,
			Path: "data/session.db",
		},
		Web: Web{
			Port: 8123,
		},
	}, nil
}

func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return errMissingBaseURL
	}
	if _, err := url.Parse(c.Backend.BaseURL); err != nil {
		return fmt.Errorf("backend base url: %w", err)
	}

	switch c.Slot.Kind {
	case SlotBolt, SlotJSON:
		if c.Slot.Path == "" {
			return fmt.Errorf("slot %s requires a path", c.Slot.Kind)
		}
	case SlotMemory:
	default:
		return fmt.Errorf("%w: %q", errUnknownSlot, c.Slot.Kind)
	}

	if c.Web.Port <= 0 || c.Web.Port > 65535 {
		return fmt.Errorf("invalid web port %d", c.Web.Port)
	}

	return nil
}
