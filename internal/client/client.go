// Package client is a typed HTTP client for the NovelForge API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/novelforge/novelforge/internal/auth"
	"github.com/novelforge/novelforge/internal/chapters"
	"github.com/novelforge/novelforge/internal/dashboard"
	"github.com/novelforge/novelforge/internal/generation"
	"github.com/novelforge/novelforge/internal/novels"
	"github.com/novelforge/novelforge/internal/reorder"
	"github.com/novelforge/novelforge/internal/shared"
)

// APIError is a non-2xx answer decoded from a problem document.
type APIError struct {
	Status int
	Title  string
	Detail string
	Fields map[string]string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("api: %d %s", e.Status, e.Title)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Unwrap maps the status onto the shared sentinel errors.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return shared.ErrNotFound
	case http.StatusUnauthorized:
		return shared.ErrUnauthorized
	case http.StatusForbidden:
		return shared.ErrForbidden
	case http.StatusConflict:
		return shared.ErrConflict
	}
	return nil
}

// Client calls the API with a bearer token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New constructs a Client. token may be empty for login and registration.
func New(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// WithToken returns a copy authenticated with token.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// Login exchanges credentials for a session.
func (c *Client) Login(ctx context.Context, login, password string) (auth.Session, error) {
	var sess auth.Session
	err := c.do(ctx, http.MethodPost, "/api/auth/login", auth.LoginInput{Login: login, Password: password}, &sess, nil)
	return sess, err
}

// Register creates an account and returns its first session.
func (c *Client) Register(ctx context.Context, in auth.RegisterInput) (auth.Session, error) {
	var sess auth.Session
	err := c.do(ctx, http.MethodPost, "/api/auth/register", in, &sess, nil)
	return sess, err
}

// Me returns the authenticated profile.
func (c *Client) Me(ctx context.Context) (auth.Profile, error) {
	var p auth.Profile
	err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &p, nil)
	return p, err
}

// ListNovels returns the first page of the caller's novels matching search.
func (c *Client) ListNovels(ctx context.Context, search string) ([]novels.Novel, error) {
	q := url.Values{}
	q.Set("per_page", "100")
	if search != "" {
		q.Set("q", search)
	}
	var resp novels.ListResponse
	if err := c.do(ctx, http.MethodGet, "/api/novels?"+q.Encode(), nil, &resp, nil); err != nil {
		return nil, err
	}
	return resp.Novels, nil
}

// ListChapters returns a novel's chapters in display order.
func (c *Client) ListChapters(ctx context.Context, novelID int64) ([]chapters.Chapter, error) {
	var resp chapters.ListResponse
	if err := c.do(ctx, http.MethodGet, "/api/novels/"+itoa(novelID)+"/chapters", nil, &resp, nil); err != nil {
		return nil, err
	}
	return resp.Chapters, nil
}

// GetChapter loads one chapter.
func (c *Client) GetChapter(ctx context.Context, id int64) (chapters.Chapter, error) {
	var ch chapters.Chapter
	err := c.do(ctx, http.MethodGet, "/api/chapters/"+itoa(id), nil, &ch, nil)
	return ch, err
}

// SaveChapter stores a full chapter snapshot.
func (c *Client) SaveChapter(ctx context.Context, id int64, req chapters.ChapterRequest) (chapters.Chapter, error) {
	var ch chapters.Chapter
	err := c.do(ctx, http.MethodPut, "/api/chapters/"+itoa(id), req, &ch, nil)
	return ch, err
}

// ReorderChapters persists a complete chapter order.
func (c *Client) ReorderChapters(ctx context.Context, novelID int64, items []reorder.Item) ([]chapters.Chapter, error) {
	var resp chapters.ListResponse
	if err := c.do(ctx, http.MethodPut, "/api/novels/"+itoa(novelID)+"/chapters/order", items, &resp, nil); err != nil {
		return nil, err
	}
	return resp.Chapters, nil
}

// Generate enqueues an AI draft. key is sent as the idempotency key when set.
func (c *Client) Generate(ctx context.Context, novelID int64, req generation.GenerateRequest, key string) (generation.Ticket, error) {
	var ticket generation.Ticket
	headers := http.Header{}
	if key != "" {
		headers.Set(generation.IdempotencyHeader, key)
	}
	err := c.do(ctx, http.MethodPost, "/api/novels/"+itoa(novelID)+"/chapters/generate", req, &ticket, headers)
	return ticket, err
}

// GenerationStatus reports a generation task.
func (c *Client) GenerationStatus(ctx context.Context, taskID string) (generation.TaskStatus, error) {
	var status generation.TaskStatus
	err := c.do(ctx, http.MethodGet, "/api/generations/"+url.PathEscape(taskID), nil, &status, nil)
	return status, err
}

// Dashboard returns the caller's writing stats.
func (c *Client) Dashboard(ctx context.Context) (dashboard.Stats, error) {
	var stats dashboard.Stats
	err := c.do(ctx, http.MethodGet, "/api/dashboard", nil, &stats, nil)
	return stats, err
}

type problem struct {
	Title  string            `json:"title"`
	Detail string            `json:"detail"`
	Errors map[string]string `json:"errors"`
}

func (c *Client) do(ctx context.Context, method, path string, in, out any, headers http.Header) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("client: encode: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("client: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range headers {
		req.Header[k] = v
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Title: http.StatusText(resp.StatusCode)}
		var p problem
		if json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&p) == nil {
			if p.Title != "" {
				apiErr.Title = p.Title
			}
			apiErr.Detail = p.Detail
			apiErr.Fields = p.Errors
		}
		return apiErr
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client: decode %s: %w", path, err)
	}
	return nil
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
