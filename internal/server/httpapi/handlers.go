package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/credcore/internal/common"
	"github.com/dmitrijs2005/credcore/internal/logging"
	"github.com/dmitrijs2005/credcore/internal/server/models"
	"github.com/dmitrijs2005/credcore/internal/server/services"
)

// --- request DTOs ---

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Phone    string `json:"phone,omitempty" validate:"omitempty,e164"`
	Password string `json:"password,omitempty" validate:"omitempty,min=8,max=128"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type requestOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type loginOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,numeric,max=18"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// --- response DTOs ---

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

func newTokenResponse(p *services.TokenPair) *tokenResponse {
	return &tokenResponse{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    p.TokenType,
		ExpiresIn:    int64(p.ExpiresIn / time.Second),
	}
}

type userResponse struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone,omitempty"`
	Roles         []string  `json:"roles"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
}

func newUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		Phone:         u.Phone,
		Roles:         u.Roles,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
	}
}

type registerResponse struct {
	User    userResponse   `json:"user"`
	Tokens  *tokenResponse `json:"tokens,omitempty"`
	Message string         `json:"message,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type identityResponse struct {
	UserID   string   `json:"user_id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

// --- handlers ---

type AuthHandler struct {
	svc services.Credentials
	log logging.Logger
}

func NewAuthHandler(svc services.Credentials, log logging.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, log: log}
}

// Register handles POST /api/v1/auth/register. Password mode answers 201 with
// tokens; OTP mode answers 202 while the address is verified.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	res, err := h.svc.Register(r.Context(), services.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, r, err, h.log)
		return
	}

	body := registerResponse{User: newUserResponse(&res.User), Message: res.Message}
	if res.Pending {
		writeJSON(w, http.StatusAccepted, response{Data: body})
		return
	}
	body.Tokens = newTokenResponse(res.Tokens)
	writeJSON(w, http.StatusCreated, response{Data: body})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	pair, err := h.svc.LoginPassword(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, r, err, h.log)
		return
	}
	writeJSON(w, http.StatusOK, response{Data: newTokenResponse(pair)})
}

func (h *AuthHandler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	var req requestOTPRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	msg, err := h.svc.RequestOTP(r.Context(), req.Email)
	if err != nil {
		writeError(w, r, err, h.log)
		return
	}
	writeJSON(w, http.StatusOK, response{Data: messageResponse{Message: msg}})
}

func (h *AuthHandler) LoginOTP(w http.ResponseWriter, r *http.Request) {
	var req loginOTPRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	pair, err := h.svc.LoginOTP(r.Context(), req.Email, req.Code)
	if err != nil {
		writeError(w, r, err, h.log)
		return
	}
	writeJSON(w, http.StatusOK, response{Data: newTokenResponse(pair)})
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	pair, err := h.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, r, err, h.log)
		return
	}
	writeJSON(w, http.StatusOK, response{Data: newTokenResponse(pair)})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.svc.Logout(r.Context(), req.RefreshToken); err != nil {
		writeError(w, r, err, h.log)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type UserHandler struct {
	svc services.Credentials
	log logging.Logger
}

func NewUserHandler(svc services.Credentials, log logging.Logger) *UserHandler {
	return &UserHandler{svc: svc, log: log}
}

// Me handles GET /api/v1/users/me.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.CurrentUser(r.Context(), tokenFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err, h.log)
		return
	}
	writeJSON(w, http.StatusOK, response{Data: newUserResponse(u)})
}

// SuperUserOnly handles GET /api/v1/users/me/super-user-only.
func (h *UserHandler) SuperUserOnly(w http.ResponseWriter, r *http.Request) {
	id, err := h.svc.RequireRole(tokenFromContext(r.Context()), common.RoleSuperUser)
	if err != nil {
		writeError(w, r, err, h.log)
		return
	}
	writeJSON(w, http.StatusOK, response{Data: identityResponse{
		UserID:   id.UserID,
		Username: id.Username,
		Roles:    id.Roles,
	}})
}

// bearer pulls the token out of an "Authorization: Bearer <token>" header.
func bearer(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
