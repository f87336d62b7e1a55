package domain

// User is the authenticated account as reported by the identity provider.
// The BFF never stores credentials; it only verifies provider-issued tokens.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}
