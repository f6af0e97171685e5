package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/accounts/internal/middleware"
	"github.com/hitoshi/accounts/internal/model"
	"github.com/hitoshi/accounts/internal/validation"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	List(ctx context.Context, caller *model.Principal) ([]*model.User, error)
	Show(ctx context.Context, caller *model.Principal, id string) (*model.User, error)
	Update(ctx context.Context, caller *model.Principal, in validation.Input) error
	SoftDelete(ctx context.Context, caller *model.Principal, id string) error
	Restore(ctx context.Context, caller *model.Principal, id string) error
	Purge(ctx context.Context, caller *model.Principal, id string) error
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
	env     *middleware.Envelope
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface, env *middleware.Envelope) *UserHandler {
	return &UserHandler{service: service, env: env}
}

// List は論理削除されていない全ユーザーを返す。
// GET /users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context(), middleware.PrincipalFromContext(r.Context()))
	if err != nil {
		h.env.WriteError(w, r, err)
		return
	}
	h.env.WriteSuccess(w, toUserResponses(users))
}

// Show はユーザーを1件返す。
// GET /users/{id}
func (h *UserHandler) Show(w http.ResponseWriter, r *http.Request) {
	u, err := h.service.Show(r.Context(), middleware.PrincipalFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.env.WriteError(w, r, err)
		return
	}
	h.env.WriteSuccess(w, toUserResponse(u))
}

// Update はボディのidで指定したユーザーの名前・メールアドレスを更新する。
// PATCH /users
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	in, err := decodeInput(r)
	if err != nil {
		h.env.WriteError(w, r, err)
		return
	}

	if err := h.service.Update(r.Context(), middleware.PrincipalFromContext(r.Context()), in); err != nil {
		h.env.WriteError(w, r, err)
		return
	}
	h.env.WriteSuccess(w, msgUserUpdated)
}

// SoftDelete はユーザーを論理削除する。
// DELETE /users/{id}
func (h *UserHandler) SoftDelete(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.service.SoftDelete, msgUserSoftDeleted)
}

// Restore は論理削除を取り消す。
// PATCH /users/{id}/restore
func (h *UserHandler) Restore(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.service.Restore, msgUserRestored)
}

// Purge はユーザーを物理削除する。
// DELETE /users/{id}/purge
func (h *UserHandler) Purge(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.service.Purge, msgUserPurged)
}

// act はパスのidに対する操作を実行し、確認メッセージを返す。
func (h *UserHandler) act(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, caller *model.Principal, id string) error,
	message string,
) {
	if err := op(r.Context(), middleware.PrincipalFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.env.WriteError(w, r, err)
		return
	}
	h.env.WriteSuccess(w, message)
}
