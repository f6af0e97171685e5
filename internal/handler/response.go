package handler

import (
	"net/http"
	"time"

	"github.com/hitoshi/accounts/internal/model"
	"github.com/hitoshi/accounts/internal/validation"
)

// 成功時の確認メッセージ
const (
	msgLoggedOut          = "Logged out successfully"
	msgUserUpdated        = "User updated successfully"
	msgUserSoftDeleted    = "User soft-deleted successfully"
	msgUserRestored       = "User restored successfully"
	msgUserPurged         = "User permanently deleted successfully"
	msgAdminStatusUpdated = "Admin status updated successfully"
)

// userResponse はユーザーのAPIレスポンス形式。パスワードハッシュは含めない。
type userResponse struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	IsAdmin   bool       `json:"is_admin"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		IsAdmin:   u.IsAdmin,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
		DeletedAt: u.DeletedAt,
	}
}

func toUserResponses(users []*model.User) []userResponse {
	out := make([]userResponse, len(users))
	for i, u := range users {
		out[i] = toUserResponse(u)
	}
	return out
}

// registerResponse は登録結果のレスポンス形式。
type registerResponse struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Token string `json:"token"`
}

// loginResponse はログイン結果のレスポンス形式。
type loginResponse struct {
	User  userResponse `json:"user"`
	Token string       `json:"token"`
}

// decodeInput はリクエストボディをvalidation.Inputにデコードする。
// 不正なJSONは "body" フィールドのバリデーションエラーになる。
func decodeInput(r *http.Request) (validation.Input, error) {
	in, err := validation.Decode(r.Body)
	if err != nil {
		return nil, validation.MalformedBodyError()
	}
	return in, nil
}
