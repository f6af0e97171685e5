// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザー（アカウント）を表す。
// DeletedAtがnilでない場合は論理削除済み。
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string // bcryptハッシュ。レスポンスには絶対に含めない
	IsAdmin      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

// IsDeleted は論理削除済みかどうかを返す。
func (u *User) IsDeleted() bool {
	return u.DeletedAt != nil
}

// AccessToken はユーザーに紐づく不透明なBearerトークンを表す。
// 平文トークンは発行時に一度だけ返し、DBにはSHA-256ハッシュのみを保存する。
type AccessToken struct {
	ID         string
	UserID     string
	Name       string
	TokenHash  string
	LastUsedAt *time.Time
	ExpiresAt  *time.Time // nilの場合は無期限
	CreatedAt  time.Time
}

// Principal は認証済みの呼び出し元を表す。
// 各サービス操作に明示的に渡され、グローバルな「現在のユーザー」は持たない。
type Principal struct {
	User    *User
	TokenID string // リクエストで提示されたトークンのID
}

// UserID は呼び出し元のユーザーIDを返す。
func (p *Principal) UserID() string {
	if p == nil || p.User == nil {
		return ""
	}
	return p.User.ID
}

// IsAdmin は呼び出し元が有効な管理者かどうかを返す。
// 論理削除済みの管理者は、トークンが有効でも管理者として扱わない。
func (p *Principal) IsAdmin() bool {
	return p != nil && p.User != nil && p.User.IsAdmin && !p.User.IsDeleted()
}
