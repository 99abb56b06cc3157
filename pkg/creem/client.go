package creem

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hundredwebs/petimage-backend/pkg/config"
	"github.com/hundredwebs/petimage-backend/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"

	defaultTimeout = 15 * time.Second
)

var (
	errAPIKeyRequired  = errors.New("creem api key is required")
	errSecretRequired  = errors.New("creem webhook secret is required")
	errInvalidEnv      = fmt.Errorf("creem environment must be %q or %q", testEnv, liveEnv)
	errBaseURLRequired = errors.New("creem base url is required")
)

// Client is a thin HTTP wrapper around the Creem payment API. Creem ships no
// Go SDK, so requests are built by hand against the documented endpoints.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	apiKey        string
	environment   string
	signingSecret string
	successURL    string
}

// NewClient initializes the Creem client once with the configured secrets and env.
func NewClient(ctx context.Context, cfg config.CreemConfig, logg *logger.Logger) (*Client, error) {
	env := cfg.Environment()
	if env != testEnv && env != liveEnv {
		return nil, errInvalidEnv
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}

	signingSecret := strings.TrimSpace(cfg.WebhookSecret)
	if signingSecret == "" {
		return nil, errSecretRequired
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}

	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("creem client initialized (%s)", env))
	}

	return &Client{
		httpClient:    &http.Client{Timeout: defaultTimeout},
		baseURL:       baseURL,
		apiKey:        apiKey,
		environment:   env,
		signingSecret: signingSecret,
		successURL:    strings.TrimSpace(cfg.SuccessURL),
	}, nil
}

// Environment reports the normalized Creem environment in use.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// SigningSecret returns the webhook signing secret.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signingSecret
}

// SuccessURL returns the configured post-checkout redirect target.
func (c *Client) SuccessURL() string {
	if c == nil {
		return ""
	}
	return c.successURL
}

// CheckoutParams describes a hosted checkout session request.
type CheckoutParams struct {
	ProductID string
	RequestID string
	Email     string
}

// CheckoutSession is the subset of the provider response the API surfaces.
type CheckoutSession struct {
	ID          string `json:"id"`
	CheckoutURL string `json:"checkout_url"`
}

// CreateCheckout opens a hosted checkout session for the given product.
func (c *Client) CreateCheckout(ctx context.Context, params CheckoutParams) (*CheckoutSession, error) {
	if params.ProductID == "" {
		return nil, errors.New("product id is required")
	}

	body := map[string]any{
		"product_id": params.ProductID,
	}
	if params.RequestID != "" {
		body["request_id"] = params.RequestID
	}
	if c.successURL != "" {
		body["success_url"] = c.successURL
	}
	if params.Email != "" {
		body["metadata"] = map[string]string{"email": params.Email}
	}

	var session CheckoutSession
	if err := c.do(ctx, http.MethodPost, "/v1/checkouts", body, &session); err != nil {
		return nil, err
	}
	if session.CheckoutURL == "" {
		return nil, errors.New("provider returned no checkout url")
	}
	return &session, nil
}

// CancelSubscription asks the provider to stop a recurring subscription.
// The authoritative local status flip happens when the cancellation webhook
// arrives; this call only initiates it.
func (c *Client) CancelSubscription(ctx context.Context, subscriptionID string) error {
	if subscriptionID == "" {
		return errors.New("subscription id is required")
	}
	path := fmt.Sprintf("/v1/subscriptions/%s/cancel", subscriptionID)
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("creem %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("creem %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
