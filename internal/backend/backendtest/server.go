// Package backendtest runs an in-memory e-learning backend for tests.
package backendtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/ghaggin/coursedesk/internal/model"
	"github.com/go-chi/chi/v5"
)

type User struct {
	ID       int
	Username string
	Email    string
	Password string
	Role     string
}

type Server struct {
	URL string

	mu      sync.Mutex
	users   []User
	courses []model.Course
	modules []model.Module
	// paths answering 500
	fail map[string]bool
}

// New starts a backend that is closed when the test ends.
func New(t *testing.T) *Server {
	t.Helper()

	s := &Server{fail: map[string]bool{}}

	r := chi.NewRouter()
	r.Post("/login", s.login)
	r.Post("/register", s.register)
	r.Group(func(r chi.Router) {
		r.Use(s.requireBearer)
		r.Get("/courses", s.listCourses)
		r.Post("/courses", s.createCourse)
		r.Get("/modules", s.listModules)
		r.Post("/modules", s.createModule)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	s.URL = srv.URL
	return s
}

func (s *Server) AddUser(u User) User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = len(s.users) + 1
	s.users = append(s.users, u)
	return u
}

func (s *Server) AddCourse(title, description string) model.Course {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := model.Course{ID: len(s.courses) + 1, Title: title, Description: description}
	s.courses = append(s.courses, c)
	return c
}

func (s *Server) Users() []User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]User(nil), s.users...)
}

func (s *Server) Courses() []model.Course {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Course(nil), s.courses...)
}

func (s *Server) Modules() []model.Module {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Module(nil), s.modules...)
}

// Fail makes path answer 500 until Recover is called.
func (s *Server) Fail(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[path] = true
}

func (s *Server) Recover(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.fail, path)
}

func Token(userID int) string {
	return fmt.Sprintf("token-%d", userID)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) failing(w http.ResponseWriter, r *http.Request) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail[r.URL.Path] {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return true
	}
	return false
}

func (s *Server) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			writeError(w, http.StatusUnauthorized, "Authorization header required")
			return
		}

		s.mu.Lock()
		valid := false
		for _, u := range s.users {
			if Token(u.ID) == token {
				valid = true
			}
		}
		s.mu.Unlock()

		if !valid {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if s.failing(w, r) {
		return
	}

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == req.Username && u.Password == req.Password {
			writeJSON(w, http.StatusOK, map[string]any{
				"token":   Token(u.ID),
				"role":    u.Role,
				"user_id": u.ID,
			})
			return
		}
	}
	writeError(w, http.StatusUnauthorized, "Invalid credentials")
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	if s.failing(w, r) {
		return
	}

	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	s.mu.Lock()
	for _, u := range s.users {
		if u.Username == req.Username {
			s.mu.Unlock()
			writeError(w, http.StatusConflict, "Username already exists")
			return
		}
	}
	s.mu.Unlock()

	u := s.AddUser(User{Username: req.Username, Email: req.Email, Password: req.Password, Role: req.Role})
	writeJSON(w, http.StatusCreated, map[string]any{"user_id": u.ID})
}

func (s *Server) listCourses(w http.ResponseWriter, r *http.Request) {
	if s.failing(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, s.Courses())
}

func (s *Server) createCourse(w http.ResponseWriter, r *http.Request) {
	if s.failing(w, r) {
		return
	}

	var req struct {
		Title        string `json:"title"`
		Description  string `json:"description"`
		InstructorID int    `json:"instructor_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "Title is required")
		return
	}

	c := s.AddCourse(req.Title, req.Description)
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) listModules(w http.ResponseWriter, r *http.Request) {
	if s.failing(w, r) {
		return
	}

	courseID, err := strconv.Atoi(r.URL.Query().Get("course_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "course_id is required")
		return
	}

	out := []model.Module{}
	for _, m := range s.Modules() {
		if m.CourseID == courseID {
			out = append(out, m)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createModule(w http.ResponseWriter, r *http.Request) {
	if s.failing(w, r) {
		return
	}

	var m model.Module
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	id := len(s.modules) + 1
	m.ID = &id
	s.modules = append(s.modules, m)
	s.mu.Unlock()

	w.WriteHeader(http.StatusCreated)
}
