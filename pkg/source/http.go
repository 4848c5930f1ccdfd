package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"gitlab.com/tinyland/lab/wagerboard/pkg/record"
)

// maxErrorBody bounds how much of a failed response is read.
const maxErrorBody = 4096

// HTTPError is a non-2xx response from the wager API. The server encodes
// failures as {"message", "status", "error"}.
type HTTPError struct {
	Status    int    `json:"status"`
	Message   string `json:"message"`
	ErrorText string `json:"error"`
	RequestID string `json:"-"`
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http %d", e.Status)
	}
	return e.Message
}

// Detail returns the server's error string, or the status line.
func (e *HTTPError) Detail() string {
	if e.ErrorText != "" {
		return e.ErrorText
	}
	return fmt.Sprintf("status %d %s", e.Status, http.StatusText(e.Status))
}

// HTTPConfig configures an HTTPSource.
type HTTPConfig struct {
	// BaseURL is the server root, e.g. "http://localhost:8080".
	BaseURL string
	// Cookie is sent verbatim as the Cookie header (the auth session).
	Cookie  string
	Timeout time.Duration
	Client  *http.Client
	Logger  *slog.Logger
}

// HTTPSource implements Source against the wager HTTP API.
type HTTPSource struct {
	base   *url.URL
	cookie string
	client *http.Client
	log    *slog.Logger
}

// NewHTTPSource validates cfg.BaseURL and returns a source.
func NewHTTPSource(cfg HTTPConfig) (*HTTPSource, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("source: base url is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("source: parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("source: unsupported scheme %q", base.Scheme)
	}
	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &HTTPSource{base: base, cookie: cfg.Cookie, client: client, log: logger}, nil
}

// Name returns "http".
func (s *HTTPSource) Name() string { return "http" }

func (s *HTTPSource) Sessions(ctx context.Context, query string) ([]*record.Record, error) {
	return s.records(ctx, "/api/session", query)
}

func (s *HTTPSource) Rounds(ctx context.Context, sessionID int, query string) ([]*record.Record, error) {
	return s.records(ctx, "/api/game-session/"+strconv.Itoa(sessionID), query)
}

func (s *HTTPSource) Users(ctx context.Context) (map[int]string, error) {
	return s.names(ctx, "/api/user")
}

func (s *HTTPSource) Games(ctx context.Context) (map[int]string, error) {
	return s.names(ctx, "/api/game")
}

func (s *HTTPSource) records(ctx context.Context, path, query string) ([]*record.Record, error) {
	body, err := s.get(ctx, path, query)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	recs, err := record.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("source: %s: %w", path, err)
	}
	return recs, nil
}

type named struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func (s *HTTPSource) names(ctx context.Context, path string) (map[int]string, error) {
	body, err := s.get(ctx, path, "")
	if err != nil {
		return nil, err
	}
	defer body.Close()
	var items []named
	if err := json.NewDecoder(body).Decode(&items); err != nil {
		return nil, fmt.Errorf("source: decode %s: %w", path, err)
	}
	out := make(map[int]string, len(items))
	for _, it := range items {
		out[it.ID] = it.Name
	}
	return out, nil
}

// get issues a GET and returns the body of a 2xx response. Other statuses
// are decoded into *HTTPError.
func (s *HTTPSource) get(ctx context.Context, path, query string) (io.ReadCloser, error) {
	u := *s.base
	u.Path = s.base.Path + path
	u.RawQuery = strings.TrimPrefix(query, "?")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("source: create request: %w", err)
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if s.cookie != "" {
		req.Header.Set("Cookie", s.cookie)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("source: GET %s: %w", path, err)
	}
	s.log.Debug("api request", "path", path, "query", u.RawQuery, "status", resp.StatusCode,
		"request_id", reqID, "latency", time.Since(start))

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, decodeHTTPError(resp, reqID)
	}
	return resp.Body, nil
}

func decodeHTTPError(resp *http.Response, reqID string) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	herr := &HTTPError{}
	if err := json.Unmarshal(raw, herr); err != nil || (herr.Message == "" && herr.ErrorText == "") {
		herr = &HTTPError{Message: strings.TrimSpace(string(raw))}
	}
	herr.Status = resp.StatusCode
	herr.RequestID = reqID
	if herr.Message == "" {
		herr.Message = http.StatusText(resp.StatusCode)
	}
	return herr
}
