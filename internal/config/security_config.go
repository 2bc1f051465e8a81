package config

type SecurityLevel int

const (
	SecurityPublic   SecurityLevel = iota // No authentication
	SecurityReporter                      // admin or seller access token
	SecurityAdmin                         // admin access token
)

const (
	RoleAdmin  = "admin"
	RoleSeller = "seller"
)

// EndpointSecurityConfig maps named HTTP routes to their required security level
var EndpointSecurityConfig = map[string]SecurityLevel{
	// Public
	"health":              SecurityPublic,
	"metrics":             SecurityPublic,
	"submit_registration": SecurityPublic,
	"login":               SecurityPublic,
	"track_open":          SecurityPublic,
	"track_click":         SecurityPublic,

	// Dashboards
	"stats":       SecurityReporter,
	"email_stats": SecurityReporter,

	// Back-office
	"list_registrations":   SecurityAdmin,
	"lookup_registrations": SecurityAdmin,
	"get_registration":     SecurityAdmin,
	"approve_registration": SecurityAdmin,
	"reject_registration":  SecurityAdmin,
	"resend_confirmation":  SecurityAdmin,
	"update_notes":         SecurityAdmin,
	"delete_registration":  SecurityAdmin,
	"list_deliveries":      SecurityAdmin,
	"export_registrations": SecurityAdmin,
}

// GetSecurityLevel returns the security level for a given route name
func GetSecurityLevel(route string) SecurityLevel {
	if level, exists := EndpointSecurityConfig[route]; exists {
		return level
	}
	// Default to highest security for unknown endpoints
	return SecurityAdmin
}

// RolesFor lists the roles that satisfy a security level.
func RolesFor(level SecurityLevel) []string {
	switch level {
	case SecurityReporter:
		return []string{RoleAdmin, RoleSeller}
	case SecurityAdmin:
		return []string{RoleAdmin}
	}
	return nil
}
