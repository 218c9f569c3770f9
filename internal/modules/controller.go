// Package modules keeps the module cache for the selected course.
//
// Every load records its course id and a generation at issue time. A
// completion commits only if both still match; anything else is a stale
// response and is dropped without reaching the view.
package modules

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ghaggin/coursedesk/internal/model"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	msgFetchFailed = "Error fetching modules"
	msgAddFailed   = "Error adding module"
	msgAdded       = "Module added successfully!"
	msgAuthorOnly  = "Only instructors can add modules"
	msgNoSelection = "Select a course first"
	msgTitleNeeded = "Module title is required"
)

type API interface {
	Modules(ctx context.Context, courseID int) ([]model.Module, error)
	CreateModule(ctx context.Context, courseID int, draft model.ModuleDraft) error
}

type SessionReader interface {
	Current() model.Session
}

// Notice is feedback from the last mutation.
type Notice struct {
	Text   string
	Failed bool
}

type View struct {
	CourseID  int
	HasCourse bool
	Modules   []model.Module
	Loading   bool
	Error     string
	Notice    Notice
	Draft     model.ModuleDraft
}

type Controller struct {
	api     API
	session SessionReader
	log     *zap.Logger

	mu        sync.Mutex
	target    int
	hasTarget bool
	gen       uint64
	modules   []model.Module
	loading   bool
	errMsg    string
	notice    Notice
	draft     model.ModuleDraft
}

type Params struct {
	fx.In

	API     API
	Session SessionReader
	Log     *zap.Logger
}

func NewController(p Params) *Controller {
	return &Controller{
		api:     p.API,
		session: p.Session,
		log:     p.Log,
	}
}

// Load is a module fetch that has been issued but not yet completed.
type Load struct {
	CourseID int
	gen      uint64
}

// LoadFor fetches the modules of courseID and replaces the cache. Switching
// to a different course discards the previous cache immediately.
func (c *Controller) LoadFor(ctx context.Context, courseID int) error {
	return c.Await(ctx, c.Issue(courseID))
}

// Issue makes courseID the target without a request. It does not block, so
// a caller can move its own selection and the target under one lock.
func (c *Controller) Issue(courseID int) Load {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.issue(courseID)
}

func (c *Controller) issue(courseID int) Load {
	if !c.hasTarget || c.target != courseID {
		c.modules = nil
		c.errMsg = ""
	}
	c.target = courseID
	c.hasTarget = true
	c.gen++
	c.loading = true
	return Load{CourseID: courseID, gen: c.gen}
}

// Await fetches the modules for an issued load and commits them if the load
// is still the latest.
func (c *Controller) Await(ctx context.Context, l Load) error {
	log := c.log.With(zap.Int("course_id", l.CourseID), zap.Uint64("generation", l.gen))

	mods, err := c.api.Modules(ctx, l.CourseID)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gen != l.gen || !c.hasTarget || c.target != l.CourseID {
		log.Debug("dropping stale module response")
		return nil
	}
	c.loading = false

	if err != nil {
		log.Warn("loading modules", zap.Error(err))
		c.errMsg = msgFetchFailed
		return fmt.Errorf("load modules for course %d: %w: %w", l.CourseID, model.ErrFetchFailure, err)
	}

	if mods == nil {
		mods = []model.Module{}
	}
	c.modules = mods
	c.errMsg = ""
	log.Debug("modules loaded", zap.Int("count", len(mods)))
	return nil
}

// Clear empties the cache and forgets the course without a request. Loads
// still in flight are superseded.
func (c *Controller) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.target = 0
	c.hasTarget = false
	c.gen++
	c.modules = nil
	c.loading = false
	c.errMsg = ""
	c.notice = Notice{}
}

// Reset is Clear plus the draft, for sign-out.
func (c *Controller) Reset() {
	c.Clear()

	c.mu.Lock()
	c.draft = model.ModuleDraft{}
	c.mu.Unlock()
}

func (c *Controller) SetDraft(d model.ModuleDraft) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = d
}

// AddModule submits the draft to the current course and reloads it. The
// draft is kept on any failure.
func (c *Controller) AddModule(ctx context.Context, draft model.ModuleDraft) error {
	c.mu.Lock()
	c.draft = draft

	if !c.session.Current().Role.CanAuthor() {
		c.notice = Notice{Text: msgAuthorOnly, Failed: true}
		c.mu.Unlock()
		return fmt.Errorf("add module: %w", model.ErrAuthorizationDenied)
	}
	if !c.hasTarget {
		c.notice = Notice{Text: msgNoSelection, Failed: true}
		c.mu.Unlock()
		return fmt.Errorf("add module: %w", model.ErrNoSelection)
	}
	if strings.TrimSpace(draft.Title) == "" {
		c.notice = Notice{Text: msgTitleNeeded, Failed: true}
		c.mu.Unlock()
		return fmt.Errorf("add module: title: %w", model.ErrInvalidDraft)
	}

	courseID := c.target
	c.notice = Notice{}
	c.mu.Unlock()

	log := c.log.With(zap.Int("course_id", courseID), zap.String("title", draft.Title))

	if err := c.api.CreateModule(ctx, courseID, draft); err != nil {
		log.Warn("adding module", zap.Error(err))
		c.mu.Lock()
		c.notice = Notice{Text: msgAddFailed, Failed: true}
		c.mu.Unlock()
		return fmt.Errorf("add module to course %d: %w: %w", courseID, model.ErrFetchFailure, err)
	}

	c.mu.Lock()
	c.draft = model.ModuleDraft{}
	c.notice = Notice{Text: msgAdded}
	if !c.hasTarget || c.target != courseID {
		c.mu.Unlock()
		log.Info("module added, course no longer selected")
		return nil
	}
	// issued under the lock that checked the target
	l := c.issue(courseID)
	c.mu.Unlock()

	log.Info("module added")
	return c.Await(ctx, l)
}

func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	var mods []model.Module
	if c.modules != nil {
		mods = append([]model.Module{}, c.modules...)
	}

	return View{
		CourseID:  c.target,
		HasCourse: c.hasTarget,
		Modules:   mods,
		Loading:   c.loading,
		Error:     c.errMsg,
		Notice:    c.notice,
		Draft:     c.draft,
	}
}
