// Package supabase talks to a hosted Supabase project: GoTrue for auth,
// PostgREST for tables and the Realtime websocket for row inserts.
package supabase

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

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/mkpublisher/showcase/internal/remote"
)

// Options configures a Client.
type Options struct {
	URL        string
	AnonKey    string
	RateLimit  rate.Limit
	RateBurst  int
	HTTPClient *http.Client
	Logger     logrus.FieldLogger
}

// Client is the HTTP side of the Supabase adapter.
type Client struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        logrus.FieldLogger
}

// NewClient creates a client for the project at opt.URL.
func NewClient(opt Options) (*Client, error) {
	if strings.TrimSpace(opt.URL) == "" {
		return nil, fmt.Errorf("SUPABASE_URL is required")
	}
	if strings.TrimSpace(opt.AnonKey) == "" {
		return nil, fmt.Errorf("SUPABASE_ANON_KEY is required")
	}
	if _, err := url.Parse(opt.URL); err != nil {
		return nil, fmt.Errorf("invalid SUPABASE_URL: %w", err)
	}

	hc := opt.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	limit := opt.RateLimit
	if limit == 0 {
		limit = rate.Inf
	}
	burst := opt.RateBurst
	if burst <= 0 {
		burst = 1
	}
	log := opt.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Client{
		baseURL:    strings.TrimRight(opt.URL, "/"),
		anonKey:    opt.AnonKey,
		httpClient: hc,
		limiter:    rate.NewLimiter(limit, burst),
		log:        log.WithField("component", "supabase"),
	}, nil
}

// Backend returns the full remote contract backed by this project.
func (c *Client) Backend() remote.Backend {
	return remote.Backend{
		Auth:     &Auth{c: c},
		Projects: &ProjectsTable{c: c},
		Profiles: &ProfilesTable{c: c},
		Channel:  NewRealtime(c),
	}
}

type request struct {
	op     string
	method string
	path   string
	query  url.Values
	token  string
	body   any
	header http.Header
}

// do performs one request and decodes a 2xx JSON body into out (if non-nil).
func (c *Client) do(ctx context.Context, r request, out any) (http.Header, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: rate limiter: %w", r.op, err)
	}

	start := time.Now()
	hdr, err := c.roundTrip(ctx, r, out)
	remote.RecordCall(time.Since(start), err)
	if err != nil {
		c.log.WithFields(logrus.Fields{"op": r.op, "error": err}).Debug("remote call failed")
	}
	return hdr, err
}

func (c *Client) roundTrip(ctx context.Context, r request, out any) (http.Header, error) {
	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		jsonData, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to marshal request: %w", r.op, err)
		}
		body = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u, body)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", r.op, err)
	}
	req.Header.Set("apikey", c.anonKey)
	token := r.token
	if token == "" {
		token = c.anonKey
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range r.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to call supabase: %w", r.op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read response: %w", r.op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.Header, decodeError(r.op, resp.StatusCode, data)
	}

	if out != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.Header, fmt.Errorf("%s: failed to unmarshal response: %w", r.op, err)
		}
	}
	return resp.Header, nil
}

// errorBody covers the error shapes of GoTrue and PostgREST.
type errorBody struct {
	Msg              string          `json:"msg"`
	Message          string          `json:"message"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
	ErrorCode        string          `json:"error_code"`
	Code             json.RawMessage `json:"code"`
}

func decodeError(op string, status int, data []byte) error {
	e := &remote.Error{Op: op, Status: status}

	var eb errorBody
	if err := json.Unmarshal(data, &eb); err != nil {
		e.Message = strings.TrimSpace(string(data))
		if e.Message == "" {
			e.Message = http.StatusText(status)
		}
		return e
	}

	switch {
	case eb.Msg != "":
		e.Message = eb.Msg
	case eb.Message != "":
		e.Message = eb.Message
	case eb.ErrorDescription != "":
		e.Message = eb.ErrorDescription
	case eb.Error != "":
		e.Message = eb.Error
	default:
		e.Message = http.StatusText(status)
	}

	e.Code = eb.ErrorCode
	if e.Code == "" && len(eb.Code) > 0 {
		var s string
		if json.Unmarshal(eb.Code, &s) == nil {
			e.Code = s
		}
	}
	if e.Code == "" {
		e.Code = eb.Error
	}
	return e
}
