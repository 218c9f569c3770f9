// Package app wires the session, backend and controllers together.
package app

import (
	"context"

	"github.com/ghaggin/coursedesk/internal/auth"
	"github.com/ghaggin/coursedesk/internal/backend"
	"github.com/ghaggin/coursedesk/internal/catalog"
	"github.com/ghaggin/coursedesk/internal/model"
	"github.com/ghaggin/coursedesk/internal/modules"
	"github.com/ghaggin/coursedesk/internal/session"
	"github.com/ghaggin/coursedesk/internal/slot"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Options(
	fx.Provide(
		slot.New,
		session.NewStore,
		backend.NewClient,
		auth.NewFlow,
		catalog.NewController,
		modules.NewController,
		NewDesk,

		credentialSource,
		authAPI,
		catalogAPI,
		modulesAPI,
		catalogSession,
		modulesSession,
		moduleLoader,
	),
	fx.Invoke(Bind),
)

func credentialSource(s *session.Store) backend.CredentialSource { return s }
func catalogSession(s *session.Store) catalog.SessionReader       { return s }
func modulesSession(s *session.Store) modules.SessionReader       { return s }
func authAPI(c *backend.Client) auth.API                          { return c }
func catalogAPI(c *backend.Client) catalog.API                    { return c }
func modulesAPI(c *backend.Client) modules.API                    { return c }
func moduleLoader(m *modules.Controller) catalog.ModuleLoader     { return m }

type BindParams struct {
	fx.In

	LC      fx.Lifecycle
	Log     *zap.Logger
	Flow    *auth.Flow
	Catalog *catalog.Controller
	Modules *modules.Controller
}

// Bind hooks the controllers to session transitions: the catalog is fetched
// whenever a session becomes authenticated and emptied on sign-out. The
// persisted session is restored on start.
func Bind(p BindParams) {
	p.Flow.OnAuthenticated(func(ctx context.Context, sess model.Session) {
		if err := p.Catalog.Refresh(ctx); err != nil {
			p.Log.Warn("initial course refresh", zap.Int("user_id", sess.UserID), zap.Error(err))
		}
	})
	p.Flow.OnSignOut(func(context.Context) {
		p.Catalog.Reset()
		p.Modules.Reset()
	})

	p.LC.Append(fx.Hook{
		OnStart: p.Flow.Restore,
	})
}
