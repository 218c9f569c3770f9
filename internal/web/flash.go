package web

import (
	"context"
	"encoding/gob"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
)

const (
	flashKey = "flash"
)

// Flash is a one-shot message shown on the next page render.
type Flash struct {
	Text   string
	Failed bool
}

type Flashes struct {
	impl *scs.SessionManager
}

func NewFlashes() *Flashes {
	gob.Register(&Flash{})

	sm := scs.New()
	sm.Lifetime = time.Hour
	sm.Cookie.Name = "coursedesk"
	sm.Cookie.SameSite = http.SameSiteStrictMode

	return &Flashes{impl: sm}
}

func (f *Flashes) Wrap(next http.Handler) http.Handler {
	return f.impl.LoadAndSave(next)
}

func (f *Flashes) Put(ctx context.Context, flash Flash) {
	f.impl.Put(ctx, flashKey, &flash)
}

// Pop returns and removes the pending flash, if any.
func (f *Flashes) Pop(ctx context.Context) (Flash, bool) {
	flash, ok := f.impl.Pop(ctx, flashKey).(*Flash)
	if !ok {
		return Flash{}, false
	}
	return *flash, true
}
