package domain

// User is the public view of a user, safe to return to clients.
// It never carries the password hash.
type User struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// RegisterRequest is the registration payload. Binding tags enforce the
// field-level rules; uniqueness of the email is checked by the Logic layer.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required,max=255"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// LoginRequest is the login payload.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse bundles a freshly issued token with its user.
type AuthResponse struct {
	Token string
	User  User
}
