// Package catalog keeps the course cache and the current selection.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ghaggin/coursedesk/internal/backend"
	"github.com/ghaggin/coursedesk/internal/model"
	"github.com/ghaggin/coursedesk/internal/modules"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	msgFetchFailed   = "Error fetching courses"
	msgCreateFailed  = "Error creating course"
	msgCreateNetwork = "Server error. Please check your connection."
	msgCreated       = "Course created successfully!"
	msgAuthorOnly    = "Only instructors can create courses"
	msgTitleNeeded   = "Course title is required"
)

type API interface {
	Courses(ctx context.Context) ([]model.Course, error)
	CreateCourse(ctx context.Context, draft model.CourseDraft, instructorID int) error
}

type SessionReader interface {
	Current() model.Session
}

// ModuleLoader follows the selection. Issue and Clear are called with the
// catalog lock held, so they must not block or call back into the catalog.
type ModuleLoader interface {
	Issue(courseID int) modules.Load
	Await(ctx context.Context, l modules.Load) error
	Clear()
}

type Notice struct {
	Text   string
	Failed bool
}

type View struct {
	Courses  []model.Course
	Selected *model.Course
	Loading  bool
	Error    string
	Notice   Notice
	Draft    model.CourseDraft
}

type Controller struct {
	api     API
	session SessionReader
	modules ModuleLoader
	log     *zap.Logger

	mu       sync.Mutex
	gen      uint64
	courses  []model.Course
	selected *model.Course
	loading  bool
	errMsg   string
	notice   Notice
	draft    model.CourseDraft
}

type Params struct {
	fx.In

	API     API
	Session SessionReader
	Modules ModuleLoader
	Log     *zap.Logger
}

func NewController(p Params) *Controller {
	return &Controller{
		api:     p.API,
		session: p.Session,
		modules: p.Modules,
		log:     p.Log,
	}
}

// Refresh replaces the course cache with the backend's list. Only the most
// recently issued refresh may commit. On failure the cache is kept.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.loading = true
	c.mu.Unlock()

	courses, err := c.api.Courses(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gen != gen {
		c.log.Debug("dropping stale course response", zap.Uint64("generation", gen))
		return nil
	}
	c.loading = false

	if err != nil {
		c.log.Warn("loading courses", zap.Error(err))
		c.errMsg = msgFetchFailed
		return fmt.Errorf("refresh courses: %w: %w", model.ErrFetchFailure, err)
	}

	if courses == nil {
		courses = []model.Course{}
	}
	c.courses = courses
	c.errMsg = ""

	if c.selected != nil {
		if fresh, ok := find(courses, c.selected.ID); ok {
			c.selected = &fresh
		} else {
			c.log.Info("selected course is gone, deselecting", zap.Int("course_id", c.selected.ID))
			c.selected = nil
			c.modules.Clear()
		}
	}

	c.log.Debug("courses loaded", zap.Int("count", len(courses)))
	return nil
}

// Select makes courseID the selection and loads its modules. The id must be
// in the current cache.
func (c *Controller) Select(ctx context.Context, courseID int) error {
	c.mu.Lock()
	course, ok := find(c.courses, courseID)
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("select course %d: %w", courseID, model.ErrNotFound)
	}
	c.selected = &course
	load := c.modules.Issue(courseID)
	c.mu.Unlock()

	c.log.Debug("course selected", zap.Int("course_id", courseID))
	return c.modules.Await(ctx, load)
}

// Deselect clears the selection and the module cache.
func (c *Controller) Deselect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.selected = nil
	c.modules.Clear()
}

func (c *Controller) SetDraft(d model.CourseDraft) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = d
}

// CreateCourse submits the draft as a new course owned by the signed-in
// author, then refreshes. The draft and cache are untouched on failure.
func (c *Controller) CreateCourse(ctx context.Context, draft model.CourseDraft) error {
	c.mu.Lock()
	c.draft = draft

	sess := c.session.Current()
	if !sess.Role.CanAuthor() {
		c.notice = Notice{Text: msgAuthorOnly, Failed: true}
		c.mu.Unlock()
		return fmt.Errorf("create course: %w", model.ErrAuthorizationDenied)
	}
	if strings.TrimSpace(draft.Title) == "" {
		c.notice = Notice{Text: msgTitleNeeded, Failed: true}
		c.mu.Unlock()
		return fmt.Errorf("create course: title: %w", model.ErrInvalidDraft)
	}
	c.notice = Notice{}
	c.mu.Unlock()

	log := c.log.With(zap.String("title", draft.Title), zap.Int("instructor_id", sess.UserID))

	if err := c.api.CreateCourse(ctx, draft, sess.UserID); err != nil {
		log.Warn("creating course", zap.Error(err))
		c.mu.Lock()
		c.notice = Notice{Text: createFailureMessage(err), Failed: true}
		c.mu.Unlock()
		return fmt.Errorf("create course: %w: %w", model.ErrFetchFailure, err)
	}

	c.mu.Lock()
	c.draft = model.CourseDraft{}
	c.notice = Notice{Text: msgCreated}
	c.mu.Unlock()

	log.Info("course created")
	return c.Refresh(ctx)
}

// Reset empties the catalog on sign-out. A refresh still in flight is
// superseded.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	c.courses = nil
	c.selected = nil
	c.loading = false
	c.errMsg = ""
	c.notice = Notice{}
	c.draft = model.CourseDraft{}
}

func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	var courses []model.Course
	if c.courses != nil {
		courses = append([]model.Course{}, c.courses...)
	}

	var selected *model.Course
	if c.selected != nil {
		s := *c.selected
		selected = &s
	}

	return View{
		Courses:  courses,
		Selected: selected,
		Loading:  c.loading,
		Error:    c.errMsg,
		Notice:   c.notice,
		Draft:    c.draft,
	}
}

func find(courses []model.Course, id int) (model.Course, bool) {
	for _, course := range courses {
		if course.ID == id {
			return course, true
		}
	}
	return model.Course{}, false
}

// A rejected create and a transport failure take the same path; only the
// text differs.
func createFailureMessage(err error) string {
	if msg, ok := backend.MessageOf(err); ok {
		return msg
	}
	if backend.IsTransport(err) {
		return msgCreateNetwork
	}
	return msgCreateFailed
}
