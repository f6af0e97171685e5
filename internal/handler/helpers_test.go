package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/accounts/internal/middleware"
	"github.com/hitoshi/accounts/internal/model"
)

func testEnvelope() *middleware.Envelope {
	return middleware.NewEnvelope(false, slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

// withPrincipal はリクエストに認証済みの呼び出し元を付与する。
func withPrincipal(r *http.Request, id string, admin bool) *http.Request {
	p := &model.Principal{User: &model.User{ID: id, IsAdmin: admin}, TokenID: "token-" + id}
	return r.WithContext(middleware.ContextWithPrincipal(r.Context(), p))
}

// withURLParam はchiのURLパラメータをリクエストに設定する。
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func jsonRequest(method, target string, body any) *http.Request {
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// envelopeBody はレスポンスのエンベロープを表す。
type envelopeBody struct {
	Status  string              `json:"status"`
	Message string              `json:"message"`
	Data    json.RawMessage     `json:"data"`
	Errors  map[string][]string `json:"errors"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelopeBody {
	t.Helper()
	var body envelopeBody
	if err := json.NewDecoder(w.Result().Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return body
}

func dataString(t *testing.T, body envelopeBody) string {
	t.Helper()
	var s string
	if err := json.Unmarshal(body.Data, &s); err != nil {
		t.Fatalf("data is not a string: %s", body.Data)
	}
	return s
}

// httpRecorderFrom は既に読み出したボディを再デコードするためのレコーダーを作る。
func httpRecorderFrom(body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	w.Body.WriteString(body)
	return w
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
