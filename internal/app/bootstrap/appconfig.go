// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like:
//   - HTTP/HTTPS ports and TLS configuration
//   - Logging level and format
//   - CORS settings
//   - Request body size limits
//   - Database connection timeouts
//
// AppConfig is where you put everything specific to YOUR application.
// Add fields here as the application grows. The struct is passed to
// most lifecycle hooks, so any configuration needed during startup,
// request handling, or shutdown should live here.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Maximum connections in pool (default: 100)
	MongoMinPoolSize uint64 // Minimum connections to keep warm (default: 10)

	// Bearer token configuration
	JWTSecret string        // Secret key for signing access tokens (must be strong in production)
	TokenTTL  time.Duration // Access token lifetime (default: 168h, i.e. 7 days)

	// Google OAuth configuration
	GoogleClientID     string // Google OAuth2 client ID
	GoogleClientSecret string // Google OAuth2 client secret

	// Base URL of this service, used to build the OAuth redirect URL.
	BaseURL string // e.g., "https://api.example.com" or "http://localhost:8080"

	// Frontend URL the OAuth callback redirects back to with the token.
	FrontendURL string // e.g., "https://app.example.com" or "http://localhost:3000"

	// Activity trail configuration
	ActivityBuffer    int           // Buffered queue size for the async activity recorder (default: 256)
	ActivityRetention time.Duration // How long trail entries are kept before the retention sweep removes them (default: 90 days)

	// Admin seeding configuration
	SeedAdminEmail string // Email of the admin account to create on startup (if set)
	SeedAdminName  string // Name of the admin account to create on startup
}
