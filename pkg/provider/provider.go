// Package provider holds the global provider catalog (§3): the set of
// third-party SaaS providers the hub knows how to authorize and sync.
package provider

import "time"

// AuthType enumerates the authentication schemes a provider may use.
type AuthType string

const (
	AuthTypeOAuth2 AuthType = "oauth2"
	AuthTypeAPIKey AuthType = "api_key"
	AuthTypeBasic  AuthType = "basic"
	AuthTypeBearer AuthType = "bearer"
)

// CustomAuthType builds an AuthType for a provider-specific scheme, e.g.
// "custom:zoho-cliq".
func CustomAuthType(name string) AuthType {
	return AuthType("custom:" + name)
}

// Provider is a global catalog row: {slug, display_name, auth_type, ...}.
type Provider struct {
	Slug        string    `json:"slug"`
	DisplayName string    `json:"display_name"`
	AuthType    AuthType  `json:"auth_type"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
