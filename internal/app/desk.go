package app

import (
	"github.com/ghaggin/coursedesk/internal/auth"
	"github.com/ghaggin/coursedesk/internal/catalog"
	"github.com/ghaggin/coursedesk/internal/model"
	"github.com/ghaggin/coursedesk/internal/modules"
	"github.com/ghaggin/coursedesk/internal/session"
	"github.com/ghaggin/coursedesk/internal/view"
	"go.uber.org/fx"
)

// Desk is what the presentation surfaces drive.
type Desk struct {
	Auth    *auth.Flow
	Catalog *catalog.Controller
	Modules *modules.Controller
	Session *session.Store
}

type DeskParams struct {
	fx.In

	Auth    *auth.Flow
	Catalog *catalog.Controller
	Modules *modules.Controller
	Session *session.Store
}

func NewDesk(p DeskParams) *Desk {
	return &Desk{
		Auth:    p.Auth,
		Catalog: p.Catalog,
		Modules: p.Modules,
		Session: p.Session,
	}
}

type Snapshot struct {
	Screen  view.Screen
	Auth    auth.Status
	Session model.Session
	Catalog catalog.View
	Modules modules.View
}

func (d *Desk) Snapshot() Snapshot {
	s := Snapshot{
		Auth:    d.Auth.Status(),
		Session: d.Session.Current(),
		Catalog: d.Catalog.Snapshot(),
		Modules: d.Modules.Snapshot(),
	}

	s.Screen = view.Route(view.State{
		Auth:     s.Auth,
		Role:     s.Session.Role,
		Selected: s.Catalog.Selected != nil,
		Loading:  s.Catalog.Loading || s.Modules.Loading,
		Error:    s.Error(),
	})
	return s
}

// Error is the fetch failure shown on the error screen, if any.
func (s Snapshot) Error() string {
	if s.Catalog.Error != "" {
		return s.Catalog.Error
	}
	return s.Modules.Error
}
