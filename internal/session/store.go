// Package session owns the signed-in identity. It is the only writer of the
// persisted token, role and user id, and it never exposes a partial session.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/ghaggin/coursedesk/internal/model"
	"github.com/ghaggin/coursedesk/internal/slot"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	keyToken  = "token"
	keyRole   = "role"
	keyUserID = "user_id"
)

var (
	errIncompleteSession = errors.New("session must carry token, role and user id")
)

type Store struct {
	slot slot.Slot
	log  *zap.Logger

	// writeMu serializes Save and Clear against the slot.
	writeMu sync.Mutex

	mu      sync.RWMutex
	current model.Session
}

type Params struct {
	fx.In

	Slot slot.Slot
	Log  *zap.Logger
}

func NewStore(p Params) *Store {
	return &Store{
		slot: p.Slot,
		log:  p.Log,
	}
}

// Current returns the in-memory session.
func (s *Store) Current() model.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Store) set(sess model.Session) {
	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()
}

// Load reads the persisted session. A partial or unreadable triple is
// treated as no session and removed from the slot.
func (s *Store) Load(ctx context.Context) (model.Session, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	sess, err := s.read(ctx)
	if err != nil {
		s.log.Warn("discarding persisted session", zap.Error(err))
		s.set(model.Session{})
		if cerr := s.clearSlot(ctx); cerr != nil {
			return model.Session{}, fmt.Errorf("clear partial session: %w", cerr)
		}
		return model.Session{}, nil
	}

	s.set(sess)
	return sess, nil
}

func (s *Store) read(ctx context.Context) (model.Session, error) {
	token, tokenErr := s.slot.Get(ctx, keyToken)
	role, roleErr := s.slot.Get(ctx, keyRole)
	uid, uidErr := s.slot.Get(ctx, keyUserID)

	missing := 0
	for _, err := range []error{tokenErr, roleErr, uidErr} {
		switch {
		case err == nil:
		case errors.Is(err, slot.ErrNotFound):
			missing++
		default:
			return model.Session{}, err
		}
	}
	if missing == 3 {
		return model.Session{}, nil
	}
	if missing > 0 {
		return model.Session{}, errIncompleteSession
	}

	r, err := model.ParseRole(role)
	if err != nil {
		return model.Session{}, err
	}
	id, err := strconv.Atoi(uid)
	if err != nil {
		return model.Session{}, fmt.Errorf("parse user id: %w", err)
	}

	sess := model.Session{Token: token, Role: r, UserID: id}
	if !sess.Valid() {
		return model.Session{}, errIncompleteSession
	}
	return sess, nil
}

// Save persists the whole session. If any key fails to write the keys
// already written are removed and the previous in-memory session stays.
func (s *Store) Save(ctx context.Context, sess model.Session) error {
	if !sess.Valid() {
		return errIncompleteSession
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	writes := []struct{ key, value string }{
		{keyUserID, strconv.Itoa(sess.UserID)},
		{keyRole, sess.Role.Wire()},
		{keyToken, sess.Token},
	}
	for i, w := range writes {
		if err := s.slot.Set(ctx, w.key, w.value); err != nil {
			for _, done := range writes[:i] {
				if derr := s.slot.Delete(ctx, done.key); derr != nil {
					s.log.Error("rolling back session key", zap.String("key", done.key), zap.Error(derr))
				}
			}
			return fmt.Errorf("save %s: %w", w.key, err)
		}
	}

	s.set(sess)
	s.log.Info("session saved", zap.Int("user_id", sess.UserID), zap.Stringer("role", sess.Role))
	return nil
}

// Clear forgets the session. The in-memory session is emptied even when the
// slot fails.
func (s *Store) Clear(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.set(model.Session{})
	if err := s.clearSlot(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.log.Info("session cleared")
	return nil
}

func (s *Store) clearSlot(ctx context.Context) error {
	var errs []error
	for _, k := range []string{keyToken, keyRole, keyUserID} {
		if err := s.slot.Delete(ctx, k); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", k, err))
		}
	}
	return errors.Join(errs...)
}
