// Package emailcheck asks an Emailable-compatible API whether an address can
// receive mail.
package emailcheck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"omip-benchmark/internal/apperr"
)

// Verdict is the normalized answer for one address.
type Verdict struct {
	Email   string `json:"email"`
	State   string `json:"state"`
	Reason  string `json:"reason,omitempty"`
	Blocked bool   `json:"blocked"`
}

var blockedStates = map[string]bool{
	"undeliverable": true,
	"disposable":    true,
	"role":          true,
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	log     *zap.Logger
}

func New(baseURL, apiKey string, timeout time.Duration, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "emailcheck",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		breaker: cb,
		log:     log,
	}
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool { return c != nil && c.apiKey != "" }

// Verify checks one address. Provider failures and an open breaker surface
// as StoreUnavailable.
func (c *Client) Verify(ctx context.Context, email string) (*Verdict, error) {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperr.Malformed("INVALID_EMAIL", "invalid email")
	}
	if !c.Configured() {
		return nil, apperr.Unavailable("EMAIL_CHECK_DISABLED", errors.New("email check api key not configured"))
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx, email)
	})
	if err != nil {
		c.log.Warn("email verification failed", zap.String("email", email), zap.Error(err))
		return nil, apperr.Unavailable("EMAIL_CHECK_FAILED", err)
	}
	state := out.(string)

	v := &Verdict{Email: email, State: state}
	if blockedStates[state] {
		v.Blocked = true
		v.Reason = "blocked"
	}
	return v, nil
}

// verifyResponse covers the field names seen across API versions.
type verifyResponse struct {
	State  string `json:"state"`
	Result string `json:"result"`
	Status string `json:"status"`
}

func (c *Client) fetch(ctx context.Context, email string) (string, error) {
	q := url.Values{}
	q.Set("email", email)
	q.Set("api_key", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/verify?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("email check request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("email check returned status %d", resp.StatusCode)
	}
	var body verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode email check response: %w", err)
	}

	state := body.State
	if state == "" {
		state = body.Result
	}
	if state == "" {
		state = body.Status
	}
	if state == "" {
		state = "unknown"
	}
	return strings.ToLower(state), nil
}
