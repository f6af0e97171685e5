package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/accounts/internal/middleware"
	"github.com/hitoshi/accounts/internal/model"
	"github.com/hitoshi/accounts/internal/validation"
)

// AdminServiceInterface は管理者ハンドラーが必要とするサービスインターフェース。
type AdminServiceInterface interface {
	ListAdmins(ctx context.Context, caller *model.Principal) ([]*model.User, error)
	SetAdminStatus(ctx context.Context, caller *model.Principal, id string, in validation.Input) error
}

// AdminHandler は管理者権限管理のHTTPハンドラー。
type AdminHandler struct {
	service AdminServiceInterface
	env     *middleware.Envelope
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(service AdminServiceInterface, env *middleware.Envelope) *AdminHandler {
	return &AdminHandler{service: service, env: env}
}

// List は管理者一覧を返す。
// GET /admins
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	admins, err := h.service.ListAdmins(r.Context(), middleware.PrincipalFromContext(r.Context()))
	if err != nil {
		h.env.WriteError(w, r, err)
		return
	}
	h.env.WriteSuccess(w, toUserResponses(admins))
}

// SetStatus は管理者フラグを変更する。
// PATCH /admins/{id}
func (h *AdminHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	in, err := decodeInput(r)
	if err != nil {
		h.env.WriteError(w, r, err)
		return
	}

	caller := middleware.PrincipalFromContext(r.Context())
	if err := h.service.SetAdminStatus(r.Context(), caller, chi.URLParam(r, "id"), in); err != nil {
		h.env.WriteError(w, r, err)
		return
	}
	h.env.WriteSuccess(w, msgAdminStatusUpdated)
}
