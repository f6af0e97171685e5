package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/accounts/internal/auth"
	"github.com/hitoshi/accounts/internal/middleware"
	"github.com/hitoshi/accounts/internal/model"
	"github.com/hitoshi/accounts/internal/validation"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Register(ctx context.Context, in validation.Input) (*auth.RegisterResult, error)
	Login(ctx context.Context, in validation.Input) (*auth.LoginResult, error)
	Logout(ctx context.Context, caller *model.Principal) error
}

// AuthHandler は認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	env     *middleware.Envelope
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, env *middleware.Envelope) *AuthHandler {
	return &AuthHandler{service: service, env: env}
}

// Register は新規ユーザーを登録し、トークンを返す。
// POST /register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	in, err := decodeInput(r)
	if err != nil {
		h.env.WriteError(w, r, err)
		return
	}

	result, err := h.service.Register(r.Context(), in)
	if err != nil {
		h.env.WriteError(w, r, err)
		return
	}

	h.env.WriteSuccess(w, registerResponse{
		Name:  result.Name,
		Email: result.Email,
		Token: result.Token,
	})
}

// Login は認証情報を検証し、ユーザーと新しいトークンを返す。
// POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	in, err := decodeInput(r)
	if err != nil {
		h.env.WriteError(w, r, err)
		return
	}

	result, err := h.service.Login(r.Context(), in)
	if err != nil {
		h.env.WriteError(w, r, err)
		return
	}

	h.env.WriteSuccess(w, loginResponse{
		User:  toUserResponse(result.User),
		Token: result.Token,
	})
}

// Logout は現在のトークンを失効させる。
// POST /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context(), middleware.PrincipalFromContext(r.Context())); err != nil {
		h.env.WriteError(w, r, err)
		return
	}
	h.env.WriteSuccess(w, msgLoggedOut)
}
