// internal/domain/models/authmethods.go
package models

// Auth methods a user can sign in with.
const (
	AuthMethodPassword = "password"
	AuthMethodGoogle   = "google"
)

// AuthMethod pairs a stored auth_method value with its display label.
type AuthMethod struct {
	Value string
	Label string
}

// AllAuthMethods lists every supported auth method.
var AllAuthMethods = []AuthMethod{
	{Value: AuthMethodPassword, Label: "Password"},
	{Value: AuthMethodGoogle, Label: "Google"},
}

// IsValidAuthMethod checks if a value is a supported auth method.
func IsValidAuthMethod(value string) bool {
	for _, m := range AllAuthMethods {
		if m.Value == value {
			return true
		}
	}
	return false
}

// AuthMethodValues returns just the values, e.g. for a schema enum.
func AuthMethodValues() []string {
	values := make([]string, len(AllAuthMethods))
	for i, m := range AllAuthMethods {
		values[i] = m.Value
	}
	return values
}
