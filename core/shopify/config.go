package shopify

import "fmt"

// Config holds configuration for the remote catalog API.
type Config struct {
	// ShopDomain is the shop handle, without the .myshopify.com suffix.
	ShopDomain string `mapstructure:"shop_domain" default:""`
	// AccessToken is the Admin API access token.
	AccessToken string `mapstructure:"access_token" default:""`
	// APIVersion is the Admin API version the GraphQL documents are written
	// against.
	APIVersion string `mapstructure:"api_version" default:"2024-10"`
	// Endpoint overrides the derived GraphQL URL; used for tests and
	// API gateways.
	Endpoint string `mapstructure:"endpoint" default:""`
	// TimeoutSeconds is the per-call HTTP timeout in seconds.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
}

// URL returns the GraphQL endpoint for the configured shop.
func (c Config) URL() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return fmt.Sprintf("https://%s.myshopify.com/admin/api/%s/graphql.json", c.ShopDomain, c.APIVersion)
}
