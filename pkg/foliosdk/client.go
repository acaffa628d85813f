package foliosdk

import (
	"net/http"
	"strings"
	"time"
)

// Client is a client for the folio portfolio API. Public operations hang off
// the Client; everything that acts on behalf of a user goes through a Session.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a new API client with a sane request timeout.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Session binds the client to the caller's access token. The token is
// forwarded as is; the builder never mints or refreshes tokens itself.
func (c *Client) Session(accessToken string) *Session {
	return &Session{client: c, accessToken: accessToken}
}

// Session performs authenticated operations with a fixed bearer token.
type Session struct {
	client      *Client
	accessToken string
}
