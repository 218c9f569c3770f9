// Package auth drives the login and registration exchange and is the only
// component that writes the session store.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ghaggin/coursedesk/internal/backend"
	"github.com/ghaggin/coursedesk/internal/model"
	"github.com/ghaggin/coursedesk/internal/session"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type State int

const (
	StateAnonymous State = iota
	StateSubmitting
	StateAuthenticated
	StateError
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateSubmitting:
		return "submitting"
	case StateAuthenticated:
		return "authenticated"
	case StateError:
		return "error"
	}
	return "unknown"
}

type Mode int

const (
	ModeLogin Mode = iota
	ModeRegister
)

func (m Mode) String() string {
	if m == ModeRegister {
		return "register"
	}
	return "login"
}

const (
	msgLoginOK      = "Login successful!"
	msgRegisterOK   = "Registration successful! Please login."
	msgServerError  = "Server error. Please try again."
	msgGenericError = "An error occurred"
)

var (
	ErrSignedIn = errors.New("already signed in")
)

// API is the part of the backend the flow talks to.
type API interface {
	Login(ctx context.Context, username, password string) (model.Session, error)
	Register(ctx context.Context, creds model.Credentials) error
}

// SessionWriter is the session store as seen by its single writer.
type SessionWriter interface {
	Load(ctx context.Context) (model.Session, error)
	Save(ctx context.Context, sess model.Session) error
	Clear(ctx context.Context) error
}

// Hook runs after the flow becomes authenticated.
type Hook func(ctx context.Context, sess model.Session)

// SignOutHook runs after Logout.
type SignOutHook func(ctx context.Context)

// Status is a consistent view of the flow for presentation.
type Status struct {
	State   State
	Mode    Mode
	Message string
}

type Flow struct {
	api   API
	store SessionWriter
	log   *zap.Logger

	mu      sync.Mutex
	state   State
	mode    Mode
	message string
	// attempt is bumped by Logout so a submission still in flight cannot
	// sign the user back in.
	attempt uint64

	onAuthenticated []Hook
	onSignOut       []SignOutHook
}

type Params struct {
	fx.In

	API   API
	Store *session.Store
	Log   *zap.Logger
}

func NewFlow(p Params) *Flow {
	return New(p.API, p.Store, p.Log)
}

func New(api API, store SessionWriter, log *zap.Logger) *Flow {
	return &Flow{
		api:   api,
		store: store,
		log:   log,
	}
}

// OnAuthenticated registers h to run after a successful login or restore.
func (f *Flow) OnAuthenticated(h Hook) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onAuthenticated = append(f.onAuthenticated, h)
}

// OnSignOut registers h to run after Logout.
func (f *Flow) OnSignOut(h SignOutHook) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onSignOut = append(f.onSignOut, h)
}

func (f *Flow) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Status{State: f.state, Mode: f.mode, Message: f.message}
}

// SetMode switches between login and register. Only allowed while
// anonymous or in error.
func (f *Flow) SetMode(m Mode) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.state {
	case StateSubmitting:
		return fmt.Errorf("set mode %s: %w", m, model.ErrBusy)
	case StateAuthenticated:
		return fmt.Errorf("set mode %s: %w", m, ErrSignedIn)
	}
	f.mode = m
	return nil
}

func (f *Flow) ToggleMode() error {
	next := ModeRegister
	if f.Status().Mode == ModeRegister {
		next = ModeLogin
	}
	return f.SetMode(next)
}

// Restore loads a persisted session at start-up.
func (f *Flow) Restore(ctx context.Context) error {
	sess, err := f.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	if !sess.Valid() {
		return nil
	}

	f.mu.Lock()
	f.state = StateAuthenticated
	hooks := append([]Hook(nil), f.onAuthenticated...)
	f.mu.Unlock()

	f.log.Info("session restored", zap.Int("user_id", sess.UserID), zap.Stringer("role", sess.Role))
	for _, h := range hooks {
		h(ctx, sess)
	}
	return nil
}

// Submit sends the credentials in the current mode.
func (f *Flow) Submit(ctx context.Context, creds model.Credentials) error {
	f.mu.Lock()
	switch f.state {
	case StateSubmitting:
		f.mu.Unlock()
		return fmt.Errorf("submit: %w", model.ErrBusy)
	case StateAuthenticated:
		f.mu.Unlock()
		return fmt.Errorf("submit: %w", ErrSignedIn)
	}
	f.state = StateSubmitting
	f.message = ""
	mode := f.mode
	attempt := f.attempt
	f.mu.Unlock()

	if mode == ModeRegister {
		return f.register(ctx, creds, attempt)
	}
	return f.login(ctx, creds, attempt)
}

func (f *Flow) login(ctx context.Context, creds model.Credentials, attempt uint64) error {
	log := f.log.With(zap.String("username", creds.Username))

	sess, err := f.api.Login(ctx, creds.Username, creds.Password)
	if err != nil {
		log.Warn("login failed", zap.Error(err))
		f.fail(attempt, failureMessage(err))
		return fmt.Errorf("login %q: %w: %w", creds.Username, model.ErrAuthFailure, err)
	}

	if !f.current(attempt) {
		log.Info("dropping login completed after sign-out")
		return nil
	}

	if err := f.store.Save(ctx, sess); err != nil {
		log.Error("saving session", zap.Error(err))
		f.fail(attempt, msgServerError)
		return fmt.Errorf("login %q: %w: %w", creds.Username, model.ErrAuthFailure, err)
	}

	f.mu.Lock()
	if f.attempt != attempt {
		f.mu.Unlock()
		// signed out while saving; undo
		return f.store.Clear(ctx)
	}
	f.state = StateAuthenticated
	f.message = msgLoginOK
	hooks := append([]Hook(nil), f.onAuthenticated...)
	f.mu.Unlock()

	log.Info("login successful", zap.Int("user_id", sess.UserID), zap.Stringer("role", sess.Role))
	for _, h := range hooks {
		h(ctx, sess)
	}
	return nil
}

func (f *Flow) register(ctx context.Context, creds model.Credentials, attempt uint64) error {
	log := f.log.With(zap.String("username", creds.Username))

	if !creds.Role.Valid() {
		creds.Role = model.RoleLearner
	}

	if err := f.api.Register(ctx, creds); err != nil {
		log.Warn("registration failed", zap.Error(err))
		f.fail(attempt, failureMessage(err))
		return fmt.Errorf("register %q: %w: %w", creds.Username, model.ErrAuthFailure, err)
	}

	f.mu.Lock()
	if f.attempt == attempt {
		f.state = StateAnonymous
		f.mode = ModeLogin
		f.message = msgRegisterOK
	}
	f.mu.Unlock()

	log.Info("registration successful", zap.Stringer("role", creds.Role))
	return nil
}

// Logout is always available. It clears the session store unconditionally.
func (f *Flow) Logout(ctx context.Context) error {
	f.mu.Lock()
	f.attempt++
	f.state = StateAnonymous
	f.mode = ModeLogin
	f.message = ""
	hooks := append([]SignOutHook(nil), f.onSignOut...)
	f.mu.Unlock()

	err := f.store.Clear(ctx)
	if err != nil {
		f.log.Error("clearing session", zap.Error(err))
	}

	for _, h := range hooks {
		h(ctx)
	}
	f.log.Info("signed out")
	return err
}

func (f *Flow) current(attempt uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempt == attempt
}

func (f *Flow) fail(attempt uint64, msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attempt != attempt {
		return
	}
	f.state = StateError
	f.message = msg
}

func failureMessage(err error) string {
	if msg, ok := backend.MessageOf(err); ok {
		return msg
	}
	if backend.IsTransport(err) {
		return msgServerError
	}
	return msgGenericError
}
