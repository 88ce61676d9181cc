package model

import (
	"context"
	"time"
)

// MailProvider is the boundary to the external mail/identity provider. Every
// implementation must categorize upstream failures into the Upstream* errors
// before returning, so callers never branch on provider-specific strings.
type MailProvider interface {
	// AuthCodeURL returns the provider authorization URL for the given state
	// token, requesting offline access with a forced consent prompt.
	AuthCodeURL(state string) string
	// Exchange trades an authorization code for tokens and resolves the
	// canonical address of the connected account.
	Exchange(ctx context.Context, code string) (bundle TokenBundle, email string, err error)
	// RefreshAccessToken obtains a new access token using the refresh token.
	// The refresh token itself is not rotated.
	RefreshAccessToken(ctx context.Context, refreshToken string) (accessToken string, expiresAt time.Time, err error)
	// Revoke invalidates a token at the provider.
	Revoke(ctx context.Context, token string) error
	// Search runs a mailbox query on behalf of the token's account.
	Search(ctx context.Context, accessToken string, query SearchQuery) (SearchResult, error)
}

// SearchQuery describes one proxied mailbox search.
type SearchQuery struct {
	Query      string
	Label      string
	MaxResults int64
	PageToken  string
}

// Message is the metadata of one matched mailbox message.
type Message struct {
	ID       string    `json:"id"`
	ThreadID string    `json:"threadId"`
	From     string    `json:"from"`
	To       string    `json:"to"`
	Subject  string    `json:"subject"`
	Snippet  string    `json:"snippet"`
	Date     time.Time `json:"date"`
	LabelIDs []string  `json:"labelIds,omitempty"`
}

// SearchResult is one page of search matches.
type SearchResult struct {
	Messages      []Message
	NextPageToken string
}
