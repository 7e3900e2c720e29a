// Package remoteclient is the sole point of contact with the recipe
// service. It owns the single authenticated connection, classifies
// every failure (internal/remoteclient/errors.go), and applies
// retry-with-backoff to idempotent operations (internal/remoteclient/retry.go).
package remoteclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// Client is safe for concurrent use by multiple goroutines. The
// Authorization secret is injected once here and never logged.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	pool       *semaphore.Weighted
	maxRetries int
	log        zerolog.Logger
	parser     NoteParser

	recipeLocksMu sync.Mutex
	recipeLocks   map[string]*sync.Mutex
}

// Options configures a new Client.
type Options struct {
	BaseURL            string
	Token              string
	ConnectionPoolSize int           // max simultaneous requests, default 10
	RequestTimeout     time.Duration // per-request total deadline, default 10s
	MaxRetries         int           // transient retry budget, default 3
	Logger             zerolog.Logger
	Parser             NoteParser // optional; see parser.go
}

// New constructs a Client with a bounded connection pool and a shared
// http.Client tuned for the recipe service.
func New(opts Options) *Client {
	poolSize := opts.ConnectionPoolSize
	if poolSize <= 0 {
		poolSize = 10
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	transport := &http.Transport{
		MaxIdleConns:        poolSize,
		MaxIdleConnsPerHost: poolSize,
		MaxConnsPerHost:     poolSize,
	}

	return &Client{
		baseURL:     opts.BaseURL,
		token:       opts.Token,
		httpClient:  &http.Client{Transport: transport, Timeout: timeout},
		pool:        semaphore.NewWeighted(int64(poolSize)),
		maxRetries:  maxRetries,
		log:         opts.Logger,
		parser:      opts.Parser,
		recipeLocks: make(map[string]*sync.Mutex),
	}
}

// requestSpec describes one outbound call in transport-agnostic terms so
// do and doWithRetry can share retry/backoff/pool logic.
type requestSpec struct {
	method      string
	path        string
	body        interface{}
	idempotent  bool // true for create/update operations needing an Idempotency-Key
}

// do issues one HTTP round trip, enforcing the connection-pool limit and
// the per-call timeout, and classifies the outcome. It does not retry —
// callers that want retry-with-backoff call doWithRetry instead.
func (c *Client) do(ctx context.Context, spec requestSpec, idempotencyKey string, out interface{}) *CallError {
	if err := c.pool.Acquire(ctx, 1); err != nil {
		return &CallError{Kind: Transient, Method: spec.method, Endpoint: spec.path, Err: err}
	}
	defer c.pool.Release(1)

	var bodyReader io.Reader
	if spec.body != nil {
		b, err := json.Marshal(spec.body)
		if err != nil {
			return &CallError{Kind: PermanentValidation, Method: spec.method, Endpoint: spec.path, Err: err}
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, spec.method, c.baseURL+spec.path, bodyReader)
	if err != nil {
		return &CallError{Kind: PermanentOther, Method: spec.method, Endpoint: spec.path, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if spec.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		kind := classifyTransportErr(err)
		c.log.Warn().Str("method", spec.method).Str("endpoint", spec.path).
			Dur("elapsed", elapsed).Err(err).Msg("recipe service call failed")
		return &CallError{Kind: kind, Method: spec.method, Endpoint: spec.path, Err: err}
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)

	kind := classifyHTTPStatus(resp.StatusCode)
	if kind != "" {
		c.log.Warn().Str("method", spec.method).Str("endpoint", spec.path).
			Int("status", resp.StatusCode).Dur("elapsed", elapsed).
			Msg("recipe service returned an error status")
		if out != nil && len(bodyBytes) > 0 {
			// A conflict response often carries the entity that already
			// satisfies the request; decode it best-effort so the caller
			// can reconcile instead of treating every conflict as fatal.
			_ = json.Unmarshal(bodyBytes, out)
		}
		return &CallError{
			Kind: kind, Method: spec.method, Endpoint: spec.path,
			Status: resp.StatusCode, Err: fmt.Errorf("status %d: %s", resp.StatusCode, bodyBytes),
		}
	}

	if out != nil && len(bodyBytes) > 0 {
		if err := json.Unmarshal(bodyBytes, out); err != nil {
			return &CallError{Kind: PermanentOther, Method: spec.method, Endpoint: spec.path, Err: err}
		}
	}
	return nil
}

// newIdempotencyKey mints a fresh idempotency token for a create/update
// call.
func newIdempotencyKey() string {
	return uuid.New().String()
}

// recipeLock returns the per-recipe mutex used to serialize whole-recipe
// updates (see ingredients.go): whole-recipe-replace semantics require
// serializing updates per recipe to avoid lost writes.
func (c *Client) recipeLock(recipeID string) *sync.Mutex {
	c.recipeLocksMu.Lock()
	defer c.recipeLocksMu.Unlock()
	l, ok := c.recipeLocks[recipeID]
	if !ok {
		l = &sync.Mutex{}
		c.recipeLocks[recipeID] = l
	}
	return l
}
