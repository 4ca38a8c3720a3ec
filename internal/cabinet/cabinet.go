// Package cabinet models the law firms using the service. Each cabinet owns
// its API keys and a drafting role forwarded to the assistant.
package cabinet

// Cabinet represents a law firm registered on the platform
type Cabinet struct {
	ID      string
	Name    string
	Role    string // avocat, notaire, juriste
	APIKeys []APIKey
}

// APIKey represents an API key for a cabinet
type APIKey struct {
	KeyHash     string
	Description string
}

// contextKey is the type for cabinet context keys
type contextKey string

const CabinetContextKey contextKey = "cabinet"
