package rpc

type Empty struct{}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password,omitempty"`
}

type RegisterResponse struct {
	UserID   string     `json:"user_id"`
	Username string     `json:"username"`
	Pending  bool       `json:"pending,omitempty"`
	Message  string     `json:"message,omitempty"`
	Tokens   *TokenPair `json:"tokens,omitempty"`
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int64 `json:"expires_in"`
}

type LoginPasswordRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RequestOTPRequest struct {
	Email string `json:"email"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type LoginOTPRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type WhoAmIResponse struct {
	UserID        string   `json:"user_id"`
	Username      string   `json:"username"`
	Email         string   `json:"email"`
	Phone         string   `json:"phone,omitempty"`
	Roles         []string `json:"roles"`
	EmailVerified bool     `json:"email_verified"`
}

type SuperUserPingResponse struct {
	Status   string `json:"status"`
	Username string `json:"username"`
}
