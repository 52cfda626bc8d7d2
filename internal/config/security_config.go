// config/security_config.go
package config

type SecurityLevel int

const (
	SecurityPublic SecurityLevel = iota // No authentication
	SecurityAccess                      // Access token required
	SecurityAdmin                       // Access token with the ADMIN role
)

// EndpointSecurityConfig maps "METHOD /path-template" to the required security level
var EndpointSecurityConfig = map[string]SecurityLevel{
	// Probes and content gateway - Public
	"GET /healthz":    SecurityPublic,
	"GET /ipfs/{cid}": SecurityPublic,

	// Users - Access Protected
	"GET /api/v1/users/me":         SecurityAccess,
	"POST /api/v1/users/me/wallet": SecurityAccess,

	// Offers - Access Protected
	"GET /api/v1/offers":                SecurityAccess,
	"POST /api/v1/offers":               SecurityAccess,
	"POST /api/v1/offers/{id}/{action}": SecurityAccess,

	// Agreements - Access Protected
	"GET /api/v1/agreements":             SecurityAccess,
	"POST /api/v1/agreements":            SecurityAccess,
	"GET /api/v1/agreements/{id}/verify": SecurityAccess,

	// Notifications and uploads - Access Protected
	"GET /api/v1/notifications":            SecurityAccess,
	"POST /api/v1/notifications/{id}/read": SecurityAccess,
	"POST /api/v1/uploads":                 SecurityAccess,

	// Operations - Admin only
	"GET /api/v1/admin/notarizations/stale": SecurityAdmin,
}

// GetSecurityLevel returns the security level for a given route
func GetSecurityLevel(route string) SecurityLevel {
	if level, exists := EndpointSecurityConfig[route]; exists {
		return level
	}
	// Default to access for unknown endpoints
	return SecurityAccess
}
