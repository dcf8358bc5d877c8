// Package provider implements the OnePipe PayWithAccount API client:
// request signing, transact/query/validate calls and the payload
// builders for the supported request types.
package provider

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/korefinance/kore/internal/pkg/env"
)

const (
	defaultBaseURL      = "https://api.dev.onepipe.io"
	defaultTransactPath = "/v2/transact"
	defaultQueryPath    = "/transact/query"
	defaultValidatePath = "/transact/validate"
)

type Client struct {
	BaseURL      string
	TransactPath string
	QueryPath    string
	ValidatePath string
	APIKey       string
	ClientSecret string
	MockMode     string

	HTTPClient *http.Client
}

// Result is the outcome of one provider call: the request_ref the call
// was signed with plus the decoded response body.
type Result struct {
	RequestRef string
	Data       map[string]any
}

func NewClientFromEnv() *Client {
	timeout, err := strconv.Atoi(env.GetEnv("PWA_TIMEOUT_SECONDS", "30"))
	if err != nil || timeout <= 0 {
		timeout = 30
	}

	secret := strings.TrimSpace(env.GetEnv("PWA_CLIENT_SECRET", ""))
	if secret == "" {
		secret = strings.TrimSpace(env.GetEnv("PWA_SECRET_KEY", ""))
	}

	return &Client{
		BaseURL:      strings.TrimRight(env.GetEnv("PWA_BASE_URL", defaultBaseURL), "/"),
		TransactPath: env.GetEnv("PWA_TRANSACT_PATH", defaultTransactPath),
		QueryPath:    env.GetEnv("PWA_QUERY_PATH", defaultQueryPath),
		ValidatePath: env.GetEnv("PWA_VALIDATE_PATH", defaultValidatePath),
		APIKey:       strings.TrimSpace(env.GetEnv("PWA_API_KEY", "")),
		ClientSecret: secret,
		MockMode:     env.GetEnv("PWA_MOCK_MODE", "inspect"),
		HTTPClient: &http.Client{
			Timeout: time.Duration(timeout) * time.Second,
		},
	}
}

// NewRequestRef returns a fresh 32-char hex request reference.
func NewRequestRef() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}

// ComputeSignature returns the MD5 hex digest of
// "request_ref;client_secret", the Signature header the API expects.
func ComputeSignature(requestRef, clientSecret string) string {
	sum := md5.Sum([]byte(requestRef + ";" + clientSecret))
	return hex.EncodeToString(sum[:])
}

func (c *Client) buildHeaders(requestRef string) map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + c.APIKey,
		"Signature":     ComputeSignature(requestRef, c.ClientSecret),
		"Content-Type":  "application/json",
	}
}

// redactSensitive strips credentials out of text destined for logs or
// error bodies.
func (c *Client) redactSensitive(text string) string {
	redacted := text
	if c.APIKey != "" {
		redacted = strings.ReplaceAll(redacted, c.APIKey, "***REDACTED_API_KEY***")
	}
	if c.ClientSecret != "" {
		redacted = strings.ReplaceAll(redacted, c.ClientSecret, "***REDACTED_SECRET***")
	}
	return redacted
}

// Transact executes a transaction request. A fresh request_ref is
// generated when none is given, and the configured mock_mode is
// injected into the transaction block unless the payload already sets
// one.
func (c *Client) Transact(ctx context.Context, payload map[string]any, requestRef string) (*Result, error) {
	if requestRef == "" {
		requestRef = NewRequestRef()
	}

	tx, ok := payload["transaction"].(map[string]any)
	if !ok {
		tx = map[string]any{}
		payload["transaction"] = tx
	}
	if _, ok := tx["mock_mode"]; !ok {
		tx["mock_mode"] = c.MockMode
	}

	return c.postAndHandle(ctx, c.BaseURL+c.TransactPath, payload, requestRef)
}

// Query looks up a transaction (POST {base_url}{query_path}). An
// existing request_ref inside the payload is never overwritten; the
// requestRef argument is only inserted when the payload carries none.
// The signature is computed over headerRequestRef, or a fresh
// reference when empty.
func (c *Client) Query(ctx context.Context, payload map[string]any, requestRef, headerRequestRef string) (*Result, error) {
	if extractRequestRef(payload) == "" && requestRef != "" {
		payload["request_ref"] = requestRef
	}
	headerRef := headerRequestRef
	if headerRef == "" {
		headerRef = NewRequestRef()
	}
	return c.postAndHandle(ctx, c.BaseURL+c.QueryPath, payload, headerRef)
}

// Validate submits an OTP/challenge answer (POST
// {base_url}{validate_path}). Request reference handling mirrors
// Query.
func (c *Client) Validate(ctx context.Context, payload map[string]any, requestRef, headerRequestRef string) (*Result, error) {
	if extractRequestRef(payload) == "" && requestRef != "" {
		payload["request_ref"] = requestRef
	}
	headerRef := headerRequestRef
	if headerRef == "" {
		headerRef = NewRequestRef()
	}
	return c.postAndHandle(ctx, c.BaseURL+c.ValidatePath, payload, headerRef)
}

// extractRequestRef finds an existing reference at the top level or
// inside the transaction block without modifying the payload.
func extractRequestRef(payload map[string]any) string {
	keys := []string{"request_ref", "requestRef", "requestReference"}
	for _, key := range keys {
		if v, ok := payload[key].(string); ok && v != "" {
			return v
		}
	}
	if tx, ok := payload["transaction"].(map[string]any); ok {
		for _, key := range keys {
			if v, ok := tx[key].(string); ok && v != "" {
				return v
			}
		}
	}
	return ""
}

func (c *Client) postAndHandle(ctx context.Context, url string, payload map[string]any, requestRef string) (*Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &Error{Err: fmt.Errorf("encode payload: %w", err), RequestRef: requestRef}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Err: err, RequestRef: requestRef}
	}
	for k, v := range c.buildHeaders(requestRef) {
		req.Header.Set(k, v)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &Error{Err: err, RequestRef: requestRef}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{
			StatusCode: resp.StatusCode,
			Body:       c.redactSensitive(string(respBody)),
			RequestRef: requestRef,
		}
	}

	var data map[string]any
	if err := json.Unmarshal(respBody, &data); err != nil {
		return nil, &Error{Err: fmt.Errorf("decode response: %w", err), RequestRef: requestRef}
	}

	return &Result{RequestRef: requestRef, Data: data}, nil
}
