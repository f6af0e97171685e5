// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/hitoshi/accounts/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// principalContextKey はリクエストコンテキストに呼び出し元を格納するためのキー。
var principalContextKey = contextKey("principal")

// Authenticator は平文トークンから呼び出し元を特定するインターフェース。
// auth.Serviceが実装する。
type Authenticator interface {
	Authenticate(ctx context.Context, plain string) (*model.Principal, error)
}

// NewBearerAuthMiddleware はAuthorizationヘッダーのBearerトークンを検証し、
// 呼び出し元(Principal)をリクエストコンテキストに注入するミドルウェアを返す。
// トークンの欠落・不正・期限切れは401エンベロープで応答する。
func NewBearerAuthMiddleware(authenticator Authenticator, env *Envelope) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				env.WriteError(w, r, model.NewUnauthenticatedError("Unauthenticated."))
				return
			}

			principal, err := authenticator.Authenticate(r.Context(), token)
			if err != nil {
				env.WriteError(w, r, err)
				return
			}

			if info := requestInfoFromContext(r.Context()); info != nil {
				info.userID = principal.UserID()
			}

			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
		})
	}
}

// bearerToken はAuthorizationヘッダーからトークンを取り出す。スキーム名は大文字小文字を区別しない。
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// PrincipalFromContext はリクエストコンテキストから呼び出し元を取得する。
// 認証ミドルウェアを通過していない場合はnilを返す。
func PrincipalFromContext(ctx context.Context) *model.Principal {
	p, _ := ctx.Value(principalContextKey).(*model.Principal)
	return p
}

// ContextWithPrincipal はコンテキストに呼び出し元を注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithPrincipal(ctx context.Context, p *model.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}
