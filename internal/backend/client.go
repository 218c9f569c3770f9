// Package backend is the HTTP client for the e-learning service.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ghaggin/coursedesk/internal/config"
	"github.com/ghaggin/coursedesk/internal/model"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	RequestIDHeader = "X-Request-ID"

	maxErrorBody = 64 << 10
)

// CredentialSource supplies the bearer credential for authenticated calls.
type CredentialSource interface {
	Current() model.Session
}

type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	limiter    *rate.Limiter
	creds      CredentialSource
	log        *zap.Logger
}

type Params struct {
	fx.In

	Config *config.Config
	Log    *zap.Logger
	Creds  CredentialSource
}

func NewClient(p Params) (*Client, error) {
	base, err := url.Parse(p.Config.Backend.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}

	var limiter *rate.Limiter
	if p.Config.Backend.RatePerSecond > 0 {
		burst := p.Config.Backend.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(p.Config.Backend.RatePerSecond), burst)
	}

	return &Client{
		baseURL: base,
		httpClient: &http.Client{
			Timeout: p.Config.Backend.Timeout,
		},
		limiter: limiter,
		creds:   p.Creds,
		log:     p.Log,
	}, nil
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token  string  `json:"token"`
	Role   string  `json:"role"`
	UserID *flexInt `json:"user_id"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type createCourseRequest struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	InstructorID int    `json:"instructor_id"`
}

type createModuleRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content,omitempty"`
	CourseID    int    `json:"course_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// flexInt accepts both 7 and "7".
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	var n json.Number
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		n = json.Number(s)
	} else if err := json.Unmarshal(b, &n); err != nil {
		return err
	}

	v, err := strconv.Atoi(n.String())
	if err != nil {
		return fmt.Errorf("user id %q: %w", n, err)
	}
	*f = flexInt(v)
	return nil
}

// Login exchanges username and password for a session.
func (c *Client) Login(ctx context.Context, username, password string) (model.Session, error) {
	var resp loginResponse
	err := c.do(ctx, http.MethodPost, "/login", nil, loginRequest{
		Username: username,
		Password: password,
	}, &resp, false)
	if err != nil {
		return model.Session{}, err
	}

	role, err := model.ParseRole(resp.Role)
	if err != nil {
		return model.Session{}, fmt.Errorf("login response: %w", err)
	}

	if resp.UserID == nil {
		return model.Session{}, fmt.Errorf("login response missing user id")
	}

	sess := model.Session{Token: resp.Token, Role: role, UserID: int(*resp.UserID)}
	if !sess.Valid() {
		return model.Session{}, fmt.Errorf("login response missing token")
	}
	return sess, nil
}

// Register creates an account. It does not sign in.
func (c *Client) Register(ctx context.Context, creds model.Credentials) error {
	return c.do(ctx, http.MethodPost, "/register", nil, registerRequest{
		Username: creds.Username,
		Email:    creds.Email,
		Password: creds.Password,
		Role:     creds.Role.Wire(),
	}, nil, false)
}

func (c *Client) Courses(ctx context.Context) ([]model.Course, error) {
	var courses []model.Course
	if err := c.do(ctx, http.MethodGet, "/courses", nil, nil, &courses, true); err != nil {
		return nil, err
	}
	return courses, nil
}

func (c *Client) CreateCourse(ctx context.Context, draft model.CourseDraft, instructorID int) error {
	return c.do(ctx, http.MethodPost, "/courses", nil, createCourseRequest{
		Title:        draft.Title,
		Description:  draft.Description,
		InstructorID: instructorID,
	}, nil, true)
}

func (c *Client) Modules(ctx context.Context, courseID int) ([]model.Module, error) {
	q := url.Values{}
	q.Set("course_id", strconv.Itoa(courseID))

	var modules []model.Module
	if err := c.do(ctx, http.MethodGet, "/modules", q, nil, &modules, true); err != nil {
		return nil, err
	}
	return modules, nil
}

func (c *Client) CreateModule(ctx context.Context, courseID int, draft model.ModuleDraft) error {
	return c.do(ctx, http.MethodPost, "/modules", nil, createModuleRequest{
		Title:       draft.Title,
		Description: draft.Description,
		Content:     draft.Content,
		CourseID:    courseID,
	}, nil, true)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any, auth bool) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s %s: %w", method, path, err)
		}
	}

	u := c.baseURL.JoinPath(path)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", path, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth && c.creds != nil {
		if token := c.creds.Current().Token; token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	log := c.log.With(
		zap.String("request_id", requestID),
		zap.String("method", method),
		zap.String("path", path),
	)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn("backend request failed", zap.Error(err))
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	log.Debug("backend response",
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var e errorResponse
		if err := json.NewDecoder(io.LimitReader(resp.Body, maxErrorBody)).Decode(&e); err == nil {
			apiErr.Message = e.Error
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
