// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"path/filepath"
	"runtime"
)

// APIError はエンベロープで変換されるドメインエラーを表す。
// File/Lineは生成箇所で、デバッグモードのレスポンスにのみ含める。
type APIError struct {
	Code    string              // エラーコード
	Message string              // クライアント向けメッセージ
	Fields  map[string][]string // バリデーションエラー時のフィールド別メッセージ
	File    string
	Line    int
	Err     error // 原因となったエラー（任意）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap は原因エラーを返す。
func (e *APIError) Unwrap() error {
	return e.Err
}

// 定義済みエラーコード
const (
	ErrCodeValidation         = "VALIDATION_FAILED"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeUnauthenticated    = "UNAUTHENTICATED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
)

// newAPIError は呼び出し元の位置を記録したAPIErrorを生成する。
// 記録するのはコンストラクタ(New*Error)を呼んだ箇所。
func newAPIError(code, message string) *APIError {
	e := &APIError{Code: code, Message: message}
	if _, file, line, ok := runtime.Caller(2); ok {
		e.File = filepath.Base(file)
		e.Line = line
	}
	return e
}

// NewValidationError はフィールド別メッセージを持つバリデーションエラーを生成する。
func NewValidationError(fields map[string][]string) *APIError {
	e := newAPIError(ErrCodeValidation, "The given data was invalid.")
	e.Fields = fields
	return e
}

// NewFieldError は単一フィールドのバリデーションエラーを生成する。
func NewFieldError(field, message string) *APIError {
	e := newAPIError(ErrCodeValidation, message)
	e.Fields = map[string][]string{field: {message}}
	return e
}

// NewNotFoundError はリソース未検出エラーを生成する。
func NewNotFoundError(resource, id string) *APIError {
	return newAPIError(ErrCodeNotFound, fmt.Sprintf("No query results for %s %s", resource, id))
}

// NewForbiddenError は権限エラーを生成する。
func NewForbiddenError(message string) *APIError {
	return newAPIError(ErrCodeForbidden, message)
}

// NewUnauthenticatedError は未認証エラーを生成する。
func NewUnauthenticatedError(message string) *APIError {
	return newAPIError(ErrCodeUnauthenticated, message)
}

// NewInvalidCredentialsError は認証情報不一致エラーを生成する。
// メールアドレスの有無とパスワード不一致を区別しない。
func NewInvalidCredentialsError() *APIError {
	return newAPIError(ErrCodeInvalidCredentials, "Invalid credentials")
}
