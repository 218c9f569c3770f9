// Package slot provides the key-value persistence slot the session store
// writes to. A slot has no atomicity across keys; callers that need it must
// provide it themselves.
package slot

import (
	"context"
	"errors"
	"fmt"

	"github.com/ghaggin/coursedesk/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var (
	ErrNotFound = errors.New("not found")
)

type Slot interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

type Params struct {
	fx.In

	LC     fx.Lifecycle
	Config *config.Config
	Log    *zap.Logger
}

// New builds the slot named by the config and ties its shutdown to the fx
// lifecycle.
func New(p Params) (Slot, error) {
	switch p.Config.Slot.Kind {
	case config.SlotBolt:
		s, err := NewBolt(p.Config.Slot.Path)
		if err != nil {
			return nil, err
		}
		p.LC.Append(fx.Hook{
			OnStop: func(context.Context) error { return s.Close() },
		})
		return s, nil

	case config.SlotJSON:
		s := NewJSON(p.Config.Slot.Path, p.Log)
		p.LC.Append(fx.Hook{
			OnStop: s.stop,
		})
		return s, nil

	case config.SlotMemory:
		return NewMemory(), nil
	}

	return nil, fmt.Errorf("unknown slot kind %q", p.Config.Slot.Kind)
}
