// Package webauth implements the client side of Stellar Web Authentication.
// It produces the bearer token that transfer providers attach to
// authenticated requests; signing the challenge stays behind the
// transferconnect.Signer interface, so the SDK never touches key material.
package webauth

import (
	"github.com/transfer-connect/sdk-go/core/net"
	"github.com/transfer-connect/sdk-go/core/toml"
)

// Client performs web authentication against anchors discovered via
// stellar.toml.
type Client struct {
	networkPassphrase string
	httpClient        *net.Client
	tomlResolver      *toml.Resolver
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the underlying HTTP client for network requests.
func WithHTTPClient(client *net.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
		c.tomlResolver = toml.NewResolver(client)
	}
}

// WithResolver sets the stellar.toml resolver, letting callers share one
// resolver (and its cache) between webauth and provider construction.
func WithResolver(resolver *toml.Resolver) ClientOption {
	return func(c *Client) {
		c.tomlResolver = resolver
	}
}

// NewClient creates a web authentication client. The networkPassphrase
// identifies the Stellar network (e.g., "Test SDF Network ; September 2015").
func NewClient(networkPassphrase string, opts ...ClientOption) *Client {
	httpClient := net.NewClient()

	client := &Client{
		networkPassphrase: networkPassphrase,
		httpClient:        httpClient,
		tomlResolver:      toml.NewResolver(httpClient),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}
