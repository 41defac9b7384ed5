// Package rest implements the import store over the hosted backend's
// PostgREST interface.
package rest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/japaniel/vocabimport/pkg/db"
)

const (
	restPrefix = "/rest/v1/"
	// maxErrorBody bounds how much of an error response is kept.
	maxErrorBody = 64 * 1024
	// uniqueViolation is the Postgres SQLSTATE PostgREST forwards on conflicts.
	uniqueViolation = "23505"
)

// APIError is a non-2xx response from the REST endpoint.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("rest: %d %s: %s", e.Status, e.Code, msg)
	}
	return fmt.Sprintf("rest: %d: %s", e.Status, msg)
}

// Client is a db.Store talking to <baseURL>/rest/v1.
type Client struct {
	baseURL string
	key     string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http = &http.Client{Timeout: d}
		}
	}
}

// New builds a client for the project at baseURL authenticated with key.
func New(baseURL, key string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("rest: invalid base url %q", baseURL)
	}
	if strings.TrimSpace(key) == "" {
		return nil, errors.New("rest: access key is required")
	}
	c := &Client{
		baseURL: strings.TrimRight(u.String(), "/"),
		key:     key,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func (c *Client) endpoint(table string, q url.Values) string {
	s := c.baseURL + restPrefix + url.PathEscape(table)
	if len(q) > 0 {
		s += "?" + q.Encode()
	}
	return s
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body []byte) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, r)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.key)
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	apiErr := &APIError{Status: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, apiErr); err != nil {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
	}
	return nil, apiErr
}

// Upsert posts rows as a JSON array. PostgREST requires every object in a
// bulk insert to carry the same keys, so absent values are sent as null.
func (c *Client) Upsert(ctx context.Context, t db.Table, rows []db.Record, ignoreDuplicates bool) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	payload := make([]map[string]any, len(rows))
	for i, r := range rows {
		payload[i] = r.Row(t.Columns)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("encode %s rows: %w", t.Name, err)
	}

	q := url.Values{}
	q.Set("on_conflict", strings.Join(t.ConflictKey, ","))
	req, err := c.newRequest(ctx, http.MethodPost, c.endpoint(t.Name, q), body)
	if err != nil {
		return 0, err
	}
	resolution := "resolution=merge-duplicates"
	if ignoreDuplicates {
		resolution = "resolution=ignore-duplicates"
	}
	req.Header.Set("Prefer", resolution+",return=minimal")

	resp, err := c.do(req)
	if err != nil {
		return 0, fmt.Errorf("upsert %s (%d rows): %w", t.Name, len(rows), err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return len(rows), nil
}

// Count asks for an exact count and reads it from Content-Range.
func (c *Client) Count(ctx context.Context, t db.Table) (int64, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("limit", "1")
	req, err := c.newRequest(ctx, http.MethodHead, c.endpoint(t.Name, q), nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Prefer", "count=exact")
	resp, err := c.do(req)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", t.Name, err)
	}
	resp.Body.Close()
	n, err := ParseContentRange(resp.Header.Get("Content-Range"))
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", t.Name, err)
	}
	return n, nil
}

// ParseContentRange extracts the total from "0-24/3573" or "*/0".
func ParseContentRange(v string) (int64, error) {
	i := strings.LastIndexByte(v, '/')
	if i < 0 {
		return 0, fmt.Errorf("malformed content range %q", v)
	}
	total := v[i+1:]
	if total == "*" {
		return 0, fmt.Errorf("content range %q carries no total", v)
	}
	n, err := strconv.ParseInt(total, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed content range %q: %w", v, err)
	}
	return n, nil
}

type sourceRow struct {
	ID          string  `json:"id,omitempty"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Priority    int     `json:"priority"`
}

func (r sourceRow) source() (db.Source, error) {
	src := db.Source{Name: r.Name, Priority: r.Priority}
	if r.Description != nil {
		src.Description = *r.Description
	}
	var id pgtype.UUID
	if err := id.Scan(r.ID); err != nil {
		return db.Source{}, fmt.Errorf("source %s has invalid id %q: %w", r.Name, r.ID, err)
	}
	src.ID = id
	return src, nil
}

// LookupSource selects the registry row by name.
func (c *Client) LookupSource(ctx context.Context, name string) (db.Source, error) {
	q := url.Values{}
	q.Set("select", "id,name,description,priority")
	q.Set("name", "eq."+name)
	q.Set("limit", "1")
	req, err := c.newRequest(ctx, http.MethodGet, c.endpoint(db.SourcesTable, q), nil)
	if err != nil {
		return db.Source{}, err
	}
	resp, err := c.do(req)
	if err != nil {
		return db.Source{}, fmt.Errorf("lookup source %s: %w", name, err)
	}
	defer resp.Body.Close()

	var rows []sourceRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return db.Source{}, fmt.Errorf("decode source %s: %w", name, err)
	}
	if len(rows) == 0 {
		return db.Source{}, fmt.Errorf("%w: %s", db.ErrSourceNotFound, name)
	}
	return rows[0].source()
}

// CreateSource inserts the registry row and returns the stored representation.
func (c *Client) CreateSource(ctx context.Context, src db.Source) (db.Source, error) {
	desc := src.Description
	body, err := json.Marshal(sourceRow{Name: src.Name, Description: &desc, Priority: src.Priority})
	if err != nil {
		return db.Source{}, err
	}
	req, err := c.newRequest(ctx, http.MethodPost, c.endpoint(db.SourcesTable, nil), body)
	if err != nil {
		return db.Source{}, err
	}
	req.Header.Set("Prefer", "return=representation")
	resp, err := c.do(req)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && (apiErr.Code == uniqueViolation || apiErr.Status == http.StatusConflict) {
			return db.Source{}, fmt.Errorf("%w: %s", db.ErrSourceExists, src.Name)
		}
		return db.Source{}, fmt.Errorf("create source %s: %w", src.Name, err)
	}
	defer resp.Body.Close()

	var rows []sourceRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return db.Source{}, fmt.Errorf("decode created source %s: %w", src.Name, err)
	}
	if len(rows) == 0 {
		return db.Source{}, fmt.Errorf("create source %s: empty response", src.Name)
	}
	return rows[0].source()
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}
