package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ghaggin/coursedesk/internal/backend"
	"github.com/ghaggin/coursedesk/internal/model"
	"github.com/ghaggin/coursedesk/internal/modules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticSession model.Session

func (s staticSession) Current() model.Session { return model.Session(s) }

var (
	author  = staticSession{Token: "t1", Role: model.RoleAuthor, UserID: 7}
	learner = staticSession{Token: "t2", Role: model.RoleLearner, UserID: 8}
)

type createCall struct {
	draft        model.CourseDraft
	instructorID int
}

type fakeAPI struct {
	mu        sync.Mutex
	courses   []model.Course
	modules   map[int][]model.Module
	fetchErr  error
	createErr error

	gate    chan struct{}
	entered chan struct{}

	courseFetches int
	moduleFetches []int
	moduleCreates []int
	creates       []createCall
}

func (f *fakeAPI) Courses(context.Context) ([]model.Course, error) {
	f.mu.Lock()
	f.courseFetches++
	gate, entered := f.gate, f.entered
	f.gate, f.entered = nil, nil
	snapshot := append([]model.Course(nil), f.courses...)
	err := f.fetchErr
	f.mu.Unlock()

	if gate != nil {
		close(entered)
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (f *fakeAPI) CreateCourse(_ context.Context, draft model.CourseDraft, instructorID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.creates = append(f.creates, createCall{draft: draft, instructorID: instructorID})
	if f.createErr != nil {
		return f.createErr
	}
	f.courses = append(f.courses, model.Course{ID: len(f.courses) + 1, Title: draft.Title, Description: draft.Description})
	return nil
}

func (f *fakeAPI) Modules(_ context.Context, courseID int) ([]model.Module, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moduleFetches = append(f.moduleFetches, courseID)
	return f.modules[courseID], nil
}

func (f *fakeAPI) CreateModule(_ context.Context, courseID int, _ model.ModuleDraft) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moduleCreates = append(f.moduleCreates, courseID)
	return nil
}

type fixture struct {
	api     *fakeAPI
	modules *modules.Controller
	catalog *Controller
}

func newFixture(sess staticSession) *fixture {
	api := &fakeAPI{modules: map[int][]model.Module{}}
	mods := modules.NewController(modules.Params{API: api, Session: sess, Log: zap.NewNop()})
	cat := NewController(Params{API: api, Session: sess, Modules: mods, Log: zap.NewNop()})
	return &fixture{api: api, modules: mods, catalog: cat}
}

func Test_Refresh_selectEmptyModules(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	ctx := context.Background()

	f := newFixture(author)
	f.api.courses = []model.Course{{ID: 1, Title: "Algebra", Description: "numbers"}}

	require.NoError(f.catalog.Refresh(ctx))
	require.NoError(f.catalog.Select(ctx, 1))

	v := f.catalog.Snapshot()
	require.NotNil(v.Selected)
	assert.Equal(1, v.Selected.ID)

	mv := f.modules.Snapshot()
	assert.Equal(1, mv.CourseID)
	assert.Empty(mv.Modules)
	assert.Equal([]int{1}, f.api.moduleFetches)
}

func Test_Select_notFound(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	ctx := context.Background()

	f := newFixture(learner)
	f.api.courses = []model.Course{{ID: 1, Title: "Algebra"}}
	require.NoError(f.catalog.Refresh(ctx))
	require.NoError(f.catalog.Select(ctx, 1))

	err := f.catalog.Select(ctx, 99)
	assert.ErrorIs(err, model.ErrNotFound)

	v := f.catalog.Snapshot()
	require.NotNil(v.Selected)
	assert.Equal(1, v.Selected.ID)
	assert.Equal([]int{1}, f.api.moduleFetches)
}

func Test_Deselect(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	ctx := context.Background()

	f := newFixture(learner)

	// from an empty state
	f.catalog.Deselect()
	assert.Nil(f.catalog.Snapshot().Selected)
	assert.Empty(f.modules.Snapshot().Modules)

	f.api.courses = []model.Course{{ID: 1, Title: "Algebra"}}
	f.api.modules[1] = []model.Module{{CourseID: 1, Title: "Intro"}}
	require.NoError(f.catalog.Refresh(ctx))
	require.NoError(f.catalog.Select(ctx, 1))
	require.Len(f.modules.Snapshot().Modules, 1)

	f.catalog.Deselect()
	assert.Nil(f.catalog.Snapshot().Selected)
	assert.Empty(f.modules.Snapshot().Modules)
	assert.False(f.modules.Snapshot().HasCourse)
}

func Test_CreateCourse(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	ctx := context.Background()

	f := newFixture(author)
	f.api.courses = []model.Course{{ID: 1, Title: "Algebra"}}
	require.NoError(f.catalog.Refresh(ctx))

	err := f.catalog.CreateCourse(ctx, model.CourseDraft{Title: "Geometry", Description: "shapes"})
	require.NoError(err)

	require.Len(f.api.creates, 1)
	assert.Equal(createCall{draft: model.CourseDraft{Title: "Geometry", Description: "shapes"}, instructorID: 7}, f.api.creates[0])

	v := f.catalog.Snapshot()
	assert.True(v.Draft.Empty())
	assert.Equal(Notice{Text: "Course created successfully!"}, v.Notice)
	assert.Len(v.Courses, 2)
	assert.Equal("Algebra", v.Courses[0].Title)
	assert.Equal("Geometry", v.Courses[1].Title)
	assert.Equal(2, f.api.courseFetches)
}

func Test_CreateCourse_failure(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	ctx := context.Background()

	f := newFixture(author)
	f.api.courses = []model.Course{{ID: 1, Title: "Algebra"}}
	require.NoError(f.catalog.Refresh(ctx))

	f.api.createErr = &backend.APIError{Status: 400, Message: "Title already used"}
	draft := model.CourseDraft{Title: "Algebra", Description: "again"}

	err := f.catalog.CreateCourse(ctx, draft)
	assert.ErrorIs(err, model.ErrFetchFailure)

	v := f.catalog.Snapshot()
	assert.Equal(draft, v.Draft)
	assert.Equal(Notice{Text: "Title already used", Failed: true}, v.Notice)
	assert.Equal([]model.Course{{ID: 1, Title: "Algebra"}}, v.Courses)
	assert.Equal(1, f.api.courseFetches)
}

func Test_CreateCourse_failureMessages(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(msgCreateNetwork, createFailureMessage(errors.New("dial tcp: refused")))
	assert.Equal(msgCreateFailed, createFailureMessage(&backend.APIError{Status: 500}))
}

func Test_CreateCourse_learnerDenied(t *testing.T) {
	assert := assert.New(t)

	f := newFixture(learner)
	err := f.catalog.CreateCourse(context.Background(), model.CourseDraft{Title: "Sneaky"})
	assert.ErrorIs(err, model.ErrAuthorizationDenied)
	assert.Empty(f.api.creates)
	assert.Equal(model.CourseDraft{Title: "Sneaky"}, f.catalog.Snapshot().Draft)
}

func Test_CreateCourse_requiresTitle(t *testing.T) {
	assert := assert.New(t)

	f := newFixture(author)
	err := f.catalog.CreateCourse(context.Background(), model.CourseDraft{Description: "untitled"})
	assert.ErrorIs(err, model.ErrInvalidDraft)
	assert.Empty(f.api.creates)
}

func Test_Refresh_failureKeepsCache(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	ctx := context.Background()

	f := newFixture(learner)
	f.api.courses = []model.Course{{ID: 1, Title: "Algebra"}}
	require.NoError(f.catalog.Refresh(ctx))

	f.api.fetchErr = errors.New("timeout")
	assert.ErrorIs(f.catalog.Refresh(ctx), model.ErrFetchFailure)

	v := f.catalog.Snapshot()
	assert.Equal([]model.Course{{ID: 1, Title: "Algebra"}}, v.Courses)
	assert.Equal("Error fetching courses", v.Error)
}

func Test_Refresh_latestWins(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	ctx := context.Background()

	f := newFixture(learner)
	f.api.courses = []model.Course{{ID: 1, Title: "old"}}
	f.api.gate = make(chan struct{})
	f.api.entered = make(chan struct{})
	gate, entered := f.api.gate, f.api.entered

	done := make(chan error)
	go func() { done <- f.catalog.Refresh(ctx) }()
	<-entered

	f.api.mu.Lock()
	f.api.courses = []model.Course{{ID: 1, Title: "new"}}
	f.api.mu.Unlock()
	require.NoError(f.catalog.Refresh(ctx))

	close(gate)
	require.NoError(<-done)

	assert.Equal("new", f.catalog.Snapshot().Courses[0].Title)
}

func Test_Reset(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	ctx := context.Background()

	f := newFixture(author)
	f.api.courses = []model.Course{{ID: 1, Title: "Algebra"}}
	require.NoError(f.catalog.Refresh(ctx))
	require.NoError(f.catalog.Select(ctx, 1))
	f.catalog.SetDraft(model.CourseDraft{Title: "half"})

	f.catalog.Reset()
	v := f.catalog.Snapshot()
	assert.Nil(v.Courses)
	assert.Nil(v.Selected)
	assert.True(v.Draft.Empty())
}

// gatedLoader pauses the module fetch for one course until gate is closed.
type gatedLoader struct {
	*modules.Controller
	course  int
	gate    chan struct{}
	entered chan struct{}
}

func (g *gatedLoader) Await(ctx context.Context, l modules.Load) error {
	if l.CourseID == g.course {
		close(g.entered)
		<-g.gate
	}
	return g.Controller.Await(ctx, l)
}

func newGatedFixture(sess staticSession, course int) (*fixture, *gatedLoader) {
	api := &fakeAPI{modules: map[int][]model.Module{}}
	mods := modules.NewController(modules.Params{API: api, Session: sess, Log: zap.NewNop()})
	g := &gatedLoader{Controller: mods, course: course, gate: make(chan struct{}), entered: make(chan struct{})}
	cat := NewController(Params{API: api, Session: sess, Modules: g, Log: zap.NewNop()})
	return &fixture{api: api, modules: mods, catalog: cat}, g
}

func Test_Select_switchWhileLoading(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	ctx := context.Background()

	f, g := newGatedFixture(author, 1)
	f.api.courses = []model.Course{{ID: 1, Title: "Algebra"}, {ID: 2, Title: "Geometry"}}
	f.api.modules[1] = []model.Module{{CourseID: 1, Title: "alg-intro"}}
	f.api.modules[2] = []model.Module{{CourseID: 2, Title: "geo-intro"}}
	require.NoError(f.catalog.Refresh(ctx))

	done := make(chan error)
	go func() { done <- f.catalog.Select(ctx, 1) }()
	<-g.entered

	require.NoError(f.catalog.Select(ctx, 2))
	close(g.gate)
	require.NoError(<-done)

	v := f.catalog.Snapshot()
	require.NotNil(v.Selected)
	assert.Equal(2, v.Selected.ID)

	mv := f.modules.Snapshot()
	assert.Equal(2, mv.CourseID)
	assert.Equal([]model.Module{{CourseID: 2, Title: "geo-intro"}}, mv.Modules)

	require.NoError(f.modules.AddModule(ctx, model.ModuleDraft{Title: "proofs"}))
	assert.Equal([]int{2}, f.api.moduleCreates)
}

func Test_Deselect_whileLoading(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	ctx := context.Background()

	f, g := newGatedFixture(author, 1)
	f.api.courses = []model.Course{{ID: 1, Title: "Algebra"}}
	f.api.modules[1] = []model.Module{{CourseID: 1, Title: "alg-intro"}}
	require.NoError(f.catalog.Refresh(ctx))

	done := make(chan error)
	go func() { done <- f.catalog.Select(ctx, 1) }()
	<-g.entered

	f.catalog.Deselect()
	close(g.gate)
	require.NoError(<-done)

	assert.Nil(f.catalog.Snapshot().Selected)
	mv := f.modules.Snapshot()
	assert.False(mv.HasCourse)
	assert.Empty(mv.Modules)

	err := f.modules.AddModule(ctx, model.ModuleDraft{Title: "proofs"})
	assert.ErrorIs(err, model.ErrNoSelection)
	assert.Empty(f.api.moduleCreates)
}

func Test_Refresh_dropsVanishedSelection(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	ctx := context.Background()

	f := newFixture(learner)
	f.api.courses = []model.Course{{ID: 1, Title: "Algebra"}, {ID: 2, Title: "Geometry"}}
	f.api.modules[2] = []model.Module{{CourseID: 2, Title: "geo-intro"}}
	require.NoError(f.catalog.Refresh(ctx))
	require.NoError(f.catalog.Select(ctx, 2))

	f.api.mu.Lock()
	f.api.courses = []model.Course{{ID: 1, Title: "Algebra"}}
	f.api.mu.Unlock()
	require.NoError(f.catalog.Refresh(ctx))

	assert.Nil(f.catalog.Snapshot().Selected)
	assert.False(f.modules.Snapshot().HasCourse)
	assert.Empty(f.modules.Snapshot().Modules)
}

func Test_Refresh_keepsSelectionStillListed(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	ctx := context.Background()

	f := newFixture(learner)
	f.api.courses = []model.Course{{ID: 1, Title: "Algebra"}}
	require.NoError(f.catalog.Refresh(ctx))
	require.NoError(f.catalog.Select(ctx, 1))

	f.api.mu.Lock()
	f.api.courses = []model.Course{{ID: 1, Title: "Algebra II"}}
	f.api.mu.Unlock()
	require.NoError(f.catalog.Refresh(ctx))

	v := f.catalog.Snapshot()
	require.NotNil(v.Selected)
	assert.Equal("Algebra II", v.Selected.Title)
	assert.True(f.modules.Snapshot().HasCourse)
}
