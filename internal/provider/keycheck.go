package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sendlens/sendlens-server/internal/logger"
	"github.com/sendlens/sendlens-server/internal/model"
)

// Supported API key providers.
const (
	ProviderZeroBounce = "zerobounce"
	ProviderAbuseIPDB  = "abuseipdb"
)

const (
	zeroBounceCreditsURL = "https://api.zerobounce.net/v2/getcredits"
	abuseIPDBCheckURL    = "https://api.abuseipdb.com/api/v2/check"
)

var _ model.KeyValidator = (*KeyChecker)(nil)

// KeyChecker validates user-supplied API keys by making a minimal
// authenticated call against the key's provider.
type KeyChecker struct {
	client *http.Client
	logger *logger.Logger
}

func NewKeyChecker(logger *logger.Logger) *KeyChecker {
	return &KeyChecker{
		client: &http.Client{Timeout: requestTimeout},
		logger: logger,
	}
}

// KnownProvider reports whether provider has a validation probe.
func KnownProvider(provider string) bool {
	return provider == ProviderZeroBounce || provider == ProviderAbuseIPDB
}

func (c *KeyChecker) Validate(ctx context.Context, provider, key string) (bool, error) {
	switch provider {
	case ProviderZeroBounce:
		return c.checkZeroBounce(ctx, key)
	case ProviderAbuseIPDB:
		return c.checkAbuseIPDB(ctx, key)
	default:
		return false, fmt.Errorf("unknown api key provider %q", provider)
	}
}

// checkZeroBounce calls the free credits endpoint. ZeroBounce answers 200 for
// any key and reports an invalid one as credits -1.
func (c *KeyChecker) checkZeroBounce(ctx context.Context, key string) (bool, error) {
	endpoint := zeroBounceCreditsURL + "?" + url.Values{"api_key": {key}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("failed to build zerobounce request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %s", model.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, nil
	}

	var body struct {
		Credits string `json:"Credits"`
	}
	if err := decodeJSON(resp, &body); err != nil {
		return false, fmt.Errorf("%w: %s", model.ErrUpstreamUnavailable, err)
	}

	return body.Credits != "-1", nil
}

// checkAbuseIPDB probes the check endpoint with a well-known address; the
// call costs one request of the daily quota and fails with 401 for a bad key.
func (c *KeyChecker) checkAbuseIPDB(ctx context.Context, key string) (bool, error) {
	endpoint := abuseIPDBCheckURL + "?" + url.Values{"ipAddress": {"8.8.8.8"}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("failed to build abuseipdb request: %w", err)
	}
	req.Header.Set("Key", key)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %s", model.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusTooManyRequests:
		// 429 means the quota is spent but the key itself was accepted.
		return true, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return false, nil
	default:
		return false, fmt.Errorf("%w: abuseipdb returned status %d", model.ErrUpstreamUnavailable, resp.StatusCode)
	}
}
