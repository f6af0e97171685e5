// Package security はアプリケーションのセキュリティ機能を提供する。
//
// NameSanitizer は表示名からマークアップを除去し、
// PasswordHasher はbcryptによるパスワードのハッシュ化と照合を行う。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// NameSanitizer は利用者が入力した表示名を平文に正規化するインターフェース。
type NameSanitizer interface {
	// Sanitize はタグを除去し、エンティティを元の文字に戻し、前後の空白を取り除く。
	// script/styleタグは内容ごと除去される。
	Sanitize(name string) string
}

// nameSanitizer はNameSanitizerの実装。
// bluemondayのStrictPolicyは全タグを除去するが、&などをエスケープするため
// 保存前にアンエスケープして平文に戻す。
type nameSanitizer struct {
	policy *bluemonday.Policy
}

// NewNameSanitizer はNameSanitizerを生成する。
func NewNameSanitizer() *nameSanitizer {
	return &nameSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は表示名を平文に正規化する。
func (s *nameSanitizer) Sanitize(name string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(name)))
}
