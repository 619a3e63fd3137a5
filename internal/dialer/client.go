// Package dialer is the HTTP client for the outbound voice-call provider.
package dialer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"outreach_backend/internal/payload"
	"outreach_backend/internal/secrets"
	"outreach_backend/platform/apperr"
	"outreach_backend/platform/logger"

	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"
)

const (
	callsPath      = "/v1/calls"
	requestTimeout = 30 * time.Second

	// maxRateLimitRetries bounds redials after the provider reports a
	// rate limit. Attempts beyond this surface the upstream error.
	maxRateLimitRetries = 3
)

// CallResponse is the provider's acknowledgement of a started call.
type CallResponse struct {
	CallID  string `json:"call_id"`
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`

	// Raw keeps the unparsed body for the call record.
	Raw string `json:"-"`
}

// Client starts calls against the provider API. Outbound requests share a
// process-wide rate limiter so bursts of scheduled calls smooth out.
type Client struct {
	httpClient *http.Client
	baseURL    string
	secretsRes secrets.Resolver
	limiter    *rate.Limiter
	log        *logger.Logger
}

// NewClient creates a dialer client. ratePerSecond throttles outbound
// starts; zero disables throttling.
func NewClient(baseURL string, secretsRes secrets.Resolver, ratePerSecond float64, log *logger.Logger) *Client {
	var limiter *rate.Limiter
	if ratePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(ratePerSecond), 1)
	}
	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		secretsRes: secretsRes,
		limiter:    limiter,
		log:        log,
	}
}

// StartCall posts a payload to the provider. Rate-limit rejections retry
// with exponential backoff and jitter up to maxRateLimitRetries times,
// any other non-200 surfaces as an upstream error with the provider's
// status code.
func (c *Client) StartCall(ctx context.Context, p *payload.Payload) (*CallResponse, error) {
	apiKey, err := c.secretsRes.Resolve(ctx, secrets.NameDialerAPIKey)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "resolve dialer credentials", err)
	}

	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode call payload: %w", err)
	}

	backoff := retry.WithJitter(time.Second, retry.NewExponential(2*time.Second))
	backoff = retry.WithMaxRetries(maxRateLimitRetries, backoff)

	var result *CallResponse
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		resp, err := c.post(ctx, apiKey, p.EncryptedKey, body)
		if err != nil {
			return err
		}
		result = resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) post(ctx context.Context, apiKey, encryptedKey string, body []byte) (*CallResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("dialer throttle: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+callsPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build call request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("authorization", apiKey)
	if encryptedKey != "" {
		req.Header.Set("encrypted_key", encryptedKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call provider: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read provider response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		upstream := apperr.Upstream(resp.StatusCode, "call provider rejected the request").
			WithDetails(strings.TrimSpace(string(raw)))
		if isRateLimited(raw) {
			c.log.Warn("call provider rate limited, backing off")
			return nil, retry.RetryableError(upstream)
		}
		c.log.UpstreamError("dialer", resp.StatusCode, upstream)
		return nil, upstream
	}

	out := &CallResponse{Raw: string(raw)}
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "decode provider response", err)
	}
	return out, nil
}

func isRateLimited(body []byte) bool {
	return strings.Contains(strings.ToLower(string(body)), "rate limit exceeded")
}
