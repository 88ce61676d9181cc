package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/sendlens/sendlens-server/internal/logger"
	"github.com/sendlens/sendlens-server/internal/model"
)

const requestTimeout = 10 * time.Second

const revokeEndpoint = "https://oauth2.googleapis.com/revoke"

const (
	defaultMaxResults = 25
	maxMaxResults     = 100
)

var _ model.MailProvider = (*Google)(nil)

// Google is the Gmail implementation of model.MailProvider. Client
// credentials stay server-side; only authorization URLs and opaque tokens
// ever cross the boundary.
type Google struct {
	conf   *oauth2.Config
	client *http.Client
	logger *logger.Logger
}

func NewGoogle(clientID, clientSecret, redirectURL string, logger *logger.Logger) *Google {
	return &Google{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes: []string{
				gmail.GmailReadonlyScope,
				"https://www.googleapis.com/auth/userinfo.email",
			},
			Endpoint: googleoauth.Endpoint,
		},
		client: &http.Client{Timeout: requestTimeout},
		logger: logger,
	}
}

// AuthCodeURL returns the consent URL for one authorization attempt. Offline
// access plus a forced consent prompt guarantees a refresh token even for
// users who granted consent before.
func (g *Google) AuthCodeURL(state string) string {
	return g.conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades the authorization code for tokens and resolves the
// mailbox's canonical address via the Gmail profile endpoint.
func (g *Google) Exchange(ctx context.Context, code string) (model.TokenBundle, string, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	exchanged, err := g.conf.Exchange(ctx, code)
	if err != nil {
		return model.TokenBundle{}, "", categorize(err, "code exchange")
	}

	if exchanged.RefreshToken == "" {
		// With ApprovalForce this should not happen; treat it as a provider
		// fault rather than storing a credential that cannot be refreshed.
		return model.TokenBundle{}, "", fmt.Errorf("%w: no refresh token in exchange response", model.ErrUpstreamUnavailable)
	}

	email, err := g.profileEmail(ctx, exchanged.AccessToken)
	if err != nil {
		return model.TokenBundle{}, "", err
	}

	bundle := model.TokenBundle{
		AccessToken:  exchanged.AccessToken,
		RefreshToken: exchanged.RefreshToken,
	}
	if !exchanged.Expiry.IsZero() {
		expiry := exchanged.Expiry
		bundle.ExpiresAt = &expiry
	}

	return bundle, email, nil
}

// RefreshAccessToken obtains a fresh access token. Google does not rotate
// refresh tokens on this call.
func (g *Google) RefreshAccessToken(ctx context.Context, refreshToken string) (string, time.Time, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	source := g.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	refreshed, err := source.Token()
	if err != nil {
		return "", time.Time{}, categorize(err, "token refresh")
	}

	return refreshed.AccessToken, refreshed.Expiry, nil
}

// Revoke invalidates the token at Google's revocation endpoint.
func (g *Google) Revoke(ctx context.Context, token string) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, revokeEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s", model.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: revoke returned status %d", model.ErrUpstreamUnavailable, resp.StatusCode)
	}

	return nil
}

// Search lists mailbox messages matching the query and hydrates per-message
// metadata headers.
func (g *Google) Search(ctx context.Context, accessToken string, query model.SearchQuery) (model.SearchResult, error) {
	svc, err := g.gmailService(ctx, accessToken)
	if err != nil {
		return model.SearchResult{}, err
	}

	maxResults := query.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	if maxResults > maxMaxResults {
		maxResults = maxMaxResults
	}

	call := svc.Users.Messages.List("me").Q(query.Query).MaxResults(maxResults).Context(ctx)
	if query.Label != "" {
		call = call.LabelIds(query.Label)
	}
	if query.PageToken != "" {
		call = call.PageToken(query.PageToken)
	}

	listed, err := call.Do()
	if err != nil {
		return model.SearchResult{}, categorize(err, "message list")
	}

	result := model.SearchResult{
		Messages:      make([]model.Message, 0, len(listed.Messages)),
		NextPageToken: listed.NextPageToken,
	}

	for _, ref := range listed.Messages {
		message, err := svc.Users.Messages.Get("me", ref.Id).
			Format("metadata").
			MetadataHeaders("From", "To", "Subject").
			Context(ctx).
			Do()
		if err != nil {
			return model.SearchResult{}, categorize(err, "message get")
		}
		result.Messages = append(result.Messages, toMessage(message))
	}

	return result, nil
}

func (g *Google) gmailService(ctx context.Context, accessToken string) (*gmail.Service, error) {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	svc, err := gmail.NewService(ctx, option.WithTokenSource(source))
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}
	return svc, nil
}

func (g *Google) profileEmail(ctx context.Context, accessToken string) (string, error) {
	svc, err := g.gmailService(ctx, accessToken)
	if err != nil {
		return "", err
	}

	profile, err := svc.Users.GetProfile("me").Context(ctx).Do()
	if err != nil {
		return "", categorize(err, "get profile")
	}
	if profile.EmailAddress == "" {
		return "", fmt.Errorf("%w: profile has no email address", model.ErrUpstreamUnavailable)
	}

	return profile.EmailAddress, nil
}

func toMessage(message *gmail.Message) model.Message {
	out := model.Message{
		ID:       message.Id,
		ThreadID: message.ThreadId,
		Snippet:  message.Snippet,
		LabelIDs: message.LabelIds,
		Date:     time.UnixMilli(message.InternalDate).UTC(),
	}

	if message.Payload != nil {
		for _, header := range message.Payload.Headers {
			switch header.Name {
			case "From":
				out.From = header.Value
			case "To":
				out.To = header.Value
			case "Subject":
				out.Subject = header.Value
			}
		}
	}

	return out
}

// categorize folds any provider error into one of the model.Upstream*
// categories exactly once, at this boundary. The raw message is preserved in
// the wrap for logging but callers only branch on the category.
func categorize(err error, op string) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusUnauthorized:
			return fmt.Errorf("%w: %s: %s", model.ErrUpstreamAuth, op, apiErr.Message)
		case apiErr.Code == http.StatusForbidden:
			// Gmail reports per-user throttling as 403 with a rate limit reason.
			for _, item := range apiErr.Errors {
				if item.Reason == "rateLimitExceeded" || item.Reason == "userRateLimitExceeded" {
					return fmt.Errorf("%w: %s", model.ErrUpstreamRateLimit, op)
				}
			}
			return fmt.Errorf("%w: %s: %s", model.ErrUpstreamAuth, op, apiErr.Message)
		case apiErr.Code == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s: %s", model.ErrUpstreamRateLimit, op, apiErr.Message)
		case apiErr.Code >= http.StatusInternalServerError:
			return fmt.Errorf("%w: %s: status %d", model.ErrUpstreamUnavailable, op, apiErr.Code)
		}
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		switch retrieveErr.Response.StatusCode {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %s", model.ErrUpstreamAuth, op)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s", model.ErrUpstreamRateLimit, op)
		}
	}

	return fmt.Errorf("%w: %s: %s", model.ErrUpstreamUnavailable, op, err)
}
