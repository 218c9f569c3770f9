// Package web serves the browser UI on localhost.
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ghaggin/coursedesk/internal/app"
	"github.com/ghaggin/coursedesk/internal/auth"
	"github.com/ghaggin/coursedesk/internal/config"
	"github.com/ghaggin/coursedesk/internal/model"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Server struct {
	log     *zap.Logger
	desk    *app.Desk
	flashes *Flashes
	render  *renderer
	server  *http.Server
}

type Params struct {
	fx.In

	Log    *zap.Logger
	Config *config.Config
	Desk   *app.Desk
}

func New(p Params) (*Server, error) {
	r, err := newRenderer()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		log:     p.Log,
		desk:    p.Desk,
		flashes: NewFlashes(),
		render:  r,
	}
	s.server = &http.Server{
		Addr:    fmt.Sprintf("localhost:%d", p.Config.Web.Port),
		Handler: s.Handler(),
	}
	return s, nil
}

func RegisterHooks(lc fx.Lifecycle, s *Server) {
	lc.Append(fx.Hook{
		OnStart: s.Start,
		OnStop:  s.server.Shutdown,
	})
}

func (s *Server) Start(_ context.Context) error {
	s.log.Info("serving", zap.String("addr", "http://"+s.server.Addr))
	go func() {
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("error shutting down server", zap.Error(err))
		}
	}()
	return nil
}

func (s *Server) Handler() http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.Recoverer)
	root.Use(s.flashes.Wrap)

	// No Auth
	root.Group(func(r chi.Router) {
		r.Get("/", s.home)
		r.Post("/login", s.login)
		r.Post("/register", s.register)
		r.Post("/mode", s.toggleMode)
		r.Post("/logout", s.logout)
	})

	// Auth
	root.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Post("/retry", s.retry)
		r.Post("/courses", s.createCourse)
		r.Post("/courses/{id}/select", s.selectCourse)
		r.Post("/deselect", s.deselect)
		r.Post("/modules", s.addModule)
	})

	return root
}

// Presence of an authenticated session indicates auth
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.desk.Auth.Status().State != auth.StateAuthenticated {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// opContext keeps controller operations running when the browser goes away;
// the backend client timeout still bounds them.
func opContext(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	td := &templateData{Snapshot: s.desk.Snapshot()}
	if flash, ok := s.flashes.Pop(r.Context()); ok {
		td.Flash = &flash
	}

	if err := s.render.render(w, td); err != nil {
		s.log.Error("rendering page", zap.String("screen", string(td.Screen)), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (s *Server) back(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// failed flashes errors the controllers do not already show themselves.
func (s *Server) failed(r *http.Request, op string, err error) {
	s.log.Debug(op, zap.Error(err))

	var text string
	switch {
	case errors.Is(err, model.ErrBusy):
		text = "Still working on the previous request."
	case errors.Is(err, auth.ErrSignedIn):
		text = "Already signed in."
	case errors.Is(err, model.ErrNotFound):
		text = "That course is no longer available."
	default:
		return
	}
	s.flashes.Put(r.Context(), Flash{Text: text, Failed: true})
}

func (s *Server) credentials(r *http.Request) model.Credentials {
	creds := model.Credentials{
		Username: r.PostFormValue("username"),
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}
	if role, err := model.ParseRole(r.PostFormValue("role")); err == nil {
		creds.Role = role
	}
	return creds
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, auth.ModeLogin)
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, auth.ModeRegister)
}

// submit posts the form in the mode the page was rendered in.
func (s *Server) submit(w http.ResponseWriter, r *http.Request, mode auth.Mode) {
	if err := s.desk.Auth.SetMode(mode); err != nil {
		s.failed(r, "set mode", err)
		s.back(w, r)
		return
	}

	if err := s.desk.Auth.Submit(opContext(r), s.credentials(r)); err != nil {
		s.failed(r, "submit", err)
	}
	s.back(w, r)
}

func (s *Server) toggleMode(w http.ResponseWriter, r *http.Request) {
	if err := s.desk.Auth.ToggleMode(); err != nil {
		s.failed(r, "toggle mode", err)
	}
	s.back(w, r)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if err := s.desk.Auth.Logout(opContext(r)); err != nil {
		s.log.Warn("logout", zap.Error(err))
	}
	s.back(w, r)
}

// retry reloads whatever failed: the modules of the selected course if that
// is what the error screen shows, the course list otherwise.
func (s *Server) retry(w http.ResponseWriter, r *http.Request) {
	ctx := opContext(r)
	snap := s.desk.Snapshot()

	var err error
	if snap.Catalog.Error == "" && snap.Catalog.Selected != nil {
		err = s.desk.Catalog.Select(ctx, snap.Catalog.Selected.ID)
	} else {
		err = s.desk.Catalog.Refresh(ctx)
	}
	if err != nil {
		s.failed(r, "retry", err)
	}
	s.back(w, r)
}

func (s *Server) createCourse(w http.ResponseWriter, r *http.Request) {
	draft := model.CourseDraft{
		Title:       r.PostFormValue("title"),
		Description: r.PostFormValue("description"),
	}
	if err := s.desk.Catalog.CreateCourse(opContext(r), draft); err != nil {
		s.failed(r, "create course", err)
	}
	s.back(w, r)
}

func (s *Server) selectCourse(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid course id", http.StatusBadRequest)
		return
	}

	if err := s.desk.Catalog.Select(opContext(r), id); err != nil {
		s.failed(r, "select course", err)
	}
	s.back(w, r)
}

func (s *Server) deselect(w http.ResponseWriter, r *http.Request) {
	s.desk.Catalog.Deselect()
	s.back(w, r)
}

func (s *Server) addModule(w http.ResponseWriter, r *http.Request) {
	draft := model.ModuleDraft{
		Title:       r.PostFormValue("title"),
		Description: r.PostFormValue("description"),
		Content:     r.PostFormValue("content"),
	}
	if err := s.desk.Modules.AddModule(opContext(r), draft); err != nil {
		s.failed(r, "add module", err)
	}
	s.back(w, r)
}
