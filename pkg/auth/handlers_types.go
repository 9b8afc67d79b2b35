package auth

// LoginRequest is the request body for login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the response body for login
type LoginResponse struct {
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token"`
	Operator     OperatorResponse `json:"operator"`
}

// RefreshRequest is the request body for token refresh
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshResponse is the response body for token refresh
type RefreshResponse struct {
	AccessToken string `json:"access_token"`
}

// MeResponse is the response body for current operator info
type MeResponse struct {
	Operator OperatorResponse `json:"operator"`
}

// OperatorResponse represents operator data in responses
type OperatorResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	Clearance string `json:"clearance"`
}

// ErrorResponse represents error responses
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
