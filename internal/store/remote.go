package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Remote is the rows-over-HTTP adapter backend for hosted relational APIs
// that expose tables as REST resources (PostgREST-style):
//
//	GET    {base}/{table}?col=eq.val&order=col.desc&limit=n
//	POST   {base}/{table}            (insert, returns representation)
//	PATCH  {base}/{table}?col=eq.val (update)
//	DELETE {base}/{table}?col=eq.val
//
// The API key travels in both the apikey header and as a bearer token, which
// is what such services expect. Exec is a no-op: the schema is managed by
// the hosting service, not by this process.
type Remote struct {
	base   string
	key    string
	client *http.Client
}

var _ Store = (*Remote)(nil)

// NewRemote creates a remote backend for the given base URL and API key.
func NewRemote(baseURL, apiKey string) *Remote {
	return &Remote{
		base: strings.TrimRight(baseURL, "/"),
		key:  apiKey,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (r *Remote) Get(ctx context.Context, q Query) (Row, error) {
	q.Limit = 1
	rows, err := r.All(ctx, q)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

func (r *Remote) All(ctx context.Context, q Query) ([]Row, error) {
	params := url.Values{}
	for _, c := range q.Where {
		params.Set(c.Column, "eq."+encodeValue(c.Value))
	}
	if len(q.OrderBy) > 0 {
		dir := ".asc"
		if q.Desc {
			dir = ".desc"
		}
		parts := make([]string, len(q.OrderBy))
		for i, col := range q.OrderBy {
			parts[i] = col + dir
		}
		params.Set("order", strings.Join(parts, ","))
	}
	if q.Limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", q.Limit))
	}

	var rows []Row
	if err := r.do(ctx, http.MethodGet, q.Table, params, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Remote) Run(ctx context.Context, m Mutation) (Result, error) {
	params := url.Values{}
	for _, c := range m.Where {
		params.Set(c.Column, "eq."+encodeValue(c.Value))
	}

	var returned []Row
	switch m.Op {
	case OpInsert:
		if err := r.do(ctx, http.MethodPost, m.Table, nil, m.Values, &returned); err != nil {
			return Result{}, err
		}
		res := Result{Affected: int64(len(returned))}
		if len(returned) > 0 {
			res.LastID = returned[0].Int64("id")
		}
		return res, nil

	case OpUpdate:
		if err := r.do(ctx, http.MethodPatch, m.Table, params, m.Values, &returned); err != nil {
			return Result{}, err
		}
		return Result{Affected: int64(len(returned))}, nil

	case OpDelete:
		if err := r.do(ctx, http.MethodDelete, m.Table, params, nil, &returned); err != nil {
			return Result{}, err
		}
		return Result{Affected: int64(len(returned))}, nil
	}

	return Result{}, fmt.Errorf("remote: unknown mutation op %d", m.Op)
}

// Exec is a recorded no-op — schema setup belongs to the hosting service.
func (r *Remote) Exec(_ context.Context, _ string) error {
	return nil
}

func (r *Remote) Close() error {
	r.client.CloseIdleConnections()
	return nil
}

func (r *Remote) do(ctx context.Context, method, table string, params url.Values, body Row, out *[]Row) error {
	endpoint := r.base + "/" + table
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(normalizeBody(body))
		if err != nil {
			return fmt.Errorf("remote: encoding %s body: %w", table, err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("remote: building %s request: %w", table, err)
	}
	req.Header.Set("apikey", r.key)
	req.Header.Set("Authorization", "Bearer "+r.key)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	// Ask for the affected rows back so Result can be filled in.
	req.Header.Set("Prefer", "return=representation")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("remote: %s %s: %w", method, table, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("remote: %s %s: status %d: %s", method, table, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("remote: decoding %s response: %w", table, err)
		}
	}
	return nil
}

// normalizeBody converts Go-native values into their JSON wire forms: times
// become RFC 3339 strings so the hosted API can parse them as timestamps.
func normalizeBody(body Row) Row {
	out := make(Row, len(body))
	for k, v := range body {
		if t, ok := v.(time.Time); ok {
			out[k] = t.UTC().Format(time.RFC3339Nano)
			continue
		}
		out[k] = v
	}
	return out
}

func encodeValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", val)
	}
}
