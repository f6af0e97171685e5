package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"runtime"

	"github.com/hitoshi/accounts/internal/model"
)

// レスポンスのstatusフィールド値
const (
	statusSuccess = "success"
	statusError   = "error"
)

// SuccessBody は成功レスポンスの統一フォーマット。
type SuccessBody struct {
	Status string `json:"status"`
	Data   any    `json:"data"`
}

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// errorsはバリデーションエラー時のみ含む。
type ErrorResponseBody struct {
	Status  string              `json:"status"`
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// DebugErrorBody はデバッグモードのエラーレスポンス。
// 生のエラーメッセージと発生箇所をそのまま返す。
type DebugErrorBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	File    string `json:"file"`
	Line    int    `json:"line"`
}

// Envelope は全レスポンスを統一フォーマットに変換する唯一の窓口。
// Debugが有効な場合、エラーは生のメッセージと発生箇所で返す。
type Envelope struct {
	Debug  bool
	Logger *slog.Logger
}

// NewEnvelope はEnvelopeを生成する。loggerがnilの場合はslog.Defaultを使う。
func NewEnvelope(debug bool, logger *slog.Logger) *Envelope {
	if logger == nil {
		logger = slog.Default()
	}
	return &Envelope{Debug: debug, Logger: logger}
}

// WriteSuccess は成功レスポンスを200で書き込む。
func (e *Envelope) WriteSuccess(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, SuccessBody{Status: statusSuccess, Data: data})
}

// WriteError はエラーを分類し、対応するステータスとフォーマットで書き込む。
// APIError以外のエラーは500として扱い、発生箇所にはWriteErrorの呼び出し元を記録する。
func (e *Envelope) WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.APIError
	isAPIErr := errors.As(err, &apiErr)

	file, line := "", 0
	if isAPIErr {
		file, line = apiErr.File, apiErr.Line
	} else if _, f, l, ok := runtime.Caller(1); ok {
		file, line = filepath.Base(f), l
	}

	status := StatusFor(err)
	e.log(r, status, err, file, line)

	if e.Debug {
		writeJSON(w, status, DebugErrorBody{
			Status:  statusError,
			Message: err.Error(),
			File:    file,
			Line:    line,
		})
		return
	}

	body := ErrorResponseBody{Status: statusError}
	switch status {
	case http.StatusUnprocessableEntity:
		body.Message = "Validation Error"
		body.Errors = apiErr.Fields
	case http.StatusNotFound:
		body.Message = "Resource not found"
	case http.StatusUnauthorized, http.StatusForbidden:
		body.Message = apiErr.Message
	default:
		// 詳細はログのみに記録し、クライアントには一般的なメッセージを返す
		body.Message = "An internal error occurred"
	}
	writeJSON(w, status, body)
}

// StatusFor はエラーに対応するHTTPステータスコードを返す。
func StatusFor(err error) int {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		return http.StatusInternalServerError
	}

	switch apiErr.Code {
	case model.ErrCodeValidation:
		return http.StatusUnprocessableEntity
	case model.ErrCodeNotFound:
		return http.StatusNotFound
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeUnauthenticated, model.ErrCodeInvalidCredentials:
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

func (e *Envelope) log(r *http.Request, status int, err error, file string, line int) {
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}

	e.Logger.Log(r.Context(), level, "request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		slog.String("error", err.Error()),
		slog.String("file", file),
		slog.Int("line", line),
	)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}
