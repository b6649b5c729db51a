package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/remessasegura/backend/internal/api/response"
	"github.com/remessasegura/backend/internal/auth"
	"go.uber.org/zap"
)

const (
	forgotPasswordMessage = "Se o e-mail existir, enviaremos instruções para redefinir a senha."
	resetPasswordMessage  = "Senha redefinida com sucesso!"
)

// LoginService authenticates credentials.
type LoginService interface {
	Login(ctx context.Context, email, password string) (*auth.LoginResult, error)
}

// PasswordResetService runs the reset flow.
type PasswordResetService interface {
	Request(ctx context.Context, email string) error
	Reset(ctx context.Context, token, newPassword string) error
}

// UserCreator creates accounts.
type UserCreator interface {
	CreateUser(ctx context.Context, in auth.NewUser) (uuid.UUID, error)
}

// AuthHandler serves /api/auth and /api/usuarios.
type AuthHandler struct {
	login  LoginService
	reset  PasswordResetService
	users  UserCreator
	logger *zap.Logger
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(login LoginService, reset PasswordResetService, users UserCreator, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{login: login, reset: reset, users: users, logger: orNop(logger)}
}

// LoginRequest is the body of POST /api/auth/login. "senha" is accepted
// for older clients.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Senha    string `json:"senha,omitempty"`
}

// ForgotPasswordRequest is the body of POST /api/auth/forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest is the body of POST /api/auth/reset-password.
type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
	NovaSenha   string `json:"novaSenha,omitempty"`
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, h.logger, err)
		return
	}
	password := req.Password
	if password == "" {
		password = req.Senha
	}

	res, err := h.login.Login(r.Context(), req.Email, password)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, res)
}

// ForgotPassword handles POST /api/auth/forgot-password. The reply is the
// same whether or not the address exists.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, h.logger, err)
		return
	}

	if err := h.reset.Request(r.Context(), req.Email); err != nil {
		fail(w, r, h.logger, err)
		return
	}
	response.Message(w, http.StatusOK, forgotPasswordMessage)
}

// ResetPassword handles POST /api/auth/reset-password
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, h.logger, err)
		return
	}
	password := req.NewPassword
	if password == "" {
		password = req.NovaSenha
	}

	if err := h.reset.Reset(r.Context(), req.Token, password); err != nil {
		fail(w, r, h.logger, err)
		return
	}
	response.Message(w, http.StatusOK, resetPasswordMessage)
}

// CreateUser handles POST /api/usuarios
func (h *AuthHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req auth.NewUser
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, h.logger, err)
		return
	}

	id, err := h.users.CreateUser(r.Context(), req)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	w.Header().Set("Location", "/api/usuarios/"+id.String())
	response.JSON(w, http.StatusCreated, map[string]any{"id": id})
}
