// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/accounts/internal/model"
)

// ErrEmailTaken は書き込み時にメールアドレスの一意制約に違反したことを表す。
// バリデーションをすり抜けた同時登録の最終防衛線。
var ErrEmailTaken = errors.New("email already taken")

// ErrUserNotFound は更新・削除対象の行が存在しなかったことを表す。
var ErrUserNotFound = errors.New("user not found")

// Scope はユーザー検索時の論理削除の扱いを表す。
type Scope int

const (
	// ScopeActive は論理削除されていないユーザーのみを対象にする。
	ScopeActive Scope = iota
	// ScopeWithTrashed は論理削除済みユーザーも含める。
	ScopeWithTrashed
	// ScopeOnlyTrashed は論理削除済みユーザーのみを対象にする。
	ScopeOnlyTrashed
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// Create はユーザーを作成する。メールアドレス重複時はErrEmailTakenを返す。
	Create(ctx context.Context, user *model.User) error

	// FindByID は指定スコープでユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string, scope Scope) (*model.User, error)

	// FindByEmail は有効なユーザーをメールアドレスで取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// EmailTaken はメールアドレスが使用済みかを返す。論理削除済みも含む。
	// exceptIDが空でない場合はそのユーザー自身を除外する。
	EmailTaken(ctx context.Context, email, exceptID string) (bool, error)

	// ListActive は論理削除されていない全ユーザーを返す。
	ListActive(ctx context.Context) ([]*model.User, error)

	// ListAdmins は論理削除されていない管理者を返す。
	ListAdmins(ctx context.Context) ([]*model.User, error)

	// Update は名前・メールアドレス・管理者フラグを更新する。
	// メールアドレス重複時はErrEmailTakenを返す。
	Update(ctx context.Context, user *model.User) error

	// SoftDelete はdeleted_atを設定する。
	SoftDelete(ctx context.Context, id string, at time.Time) error

	// Restore はdeleted_atをクリアする。
	Restore(ctx context.Context, id string) error

	// DeleteByID はユーザーを物理削除する。access_tokensはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error

	// PurgeSoftDeletedBefore はcutoffより前に論理削除されたユーザーを物理削除し、件数を返す。
	PurgeSoftDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// TokenRepository はアクセストークンの永続化インターフェース。
type TokenRepository interface {
	// Create はトークンを作成する。
	Create(ctx context.Context, token *model.AccessToken) error
	// FindByHash はハッシュでトークンを取得する。期限切れの場合はnilを返す。
	FindByHash(ctx context.Context, tokenHash string) (*model.AccessToken, error)
	// TouchLastUsed はlast_used_atを更新する。
	TouchLastUsed(ctx context.Context, id string, at time.Time) error
	// DeleteByID は指定IDのトークンを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全トークンを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}
