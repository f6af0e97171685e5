// Package validation はリクエスト入力の宣言的なバリデーションを提供する。
//
// 各操作はフィールド名から順序付きルール列へのスキーマを定義し、
// Validateは合格（nil）またはフィールド別メッセージを持つ
// model.APIError（VALIDATION_FAILED）を返す。
package validation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/hitoshi/accounts/internal/model"
)

// Input はデコード済みのリクエスト入力。数値はjson.Numberで保持する。
type Input map[string]any

// Has はフィールドが存在しnullでないかを返す。
func (in Input) Has(field string) bool {
	v, ok := in[field]
	return ok && v != nil
}

// String はフィールドの文字列値を返す。文字列以外の場合は空文字列を返す。
func (in Input) String(field string) string {
	s, _ := in[field].(string)
	return s
}

// Int はフィールドを整数として解釈する。
func (in Input) Int(field string) (int64, bool) {
	return toInt(in[field])
}

// untrimmedFields は前後の空白も値の一部として扱うフィールド。
var untrimmedFields = map[string]bool{
	"password":        true,
	"confirmPassword": true,
}

// Normalize は文字列値の前後の空白を除去したInputのコピーを返す。
// パスワード系のフィールドはそのまま保持する。
// 冪等のため、Decode済みの入力に対して再度呼んでもよい。
func (in Input) Normalize() Input {
	out := make(Input, len(in))
	for k, v := range in {
		if s, ok := v.(string); ok && !untrimmedFields[k] {
			v = strings.TrimSpace(s)
		}
		out[k] = v
	}
	return out
}

// Field は1フィールド分のルール定義。
type Field struct {
	Name     string
	Bail     bool // 最初の失敗で残りのルールを打ち切る
	Nullable bool // nullの場合はすべてのルールをスキップする
	Rules    []Rule
}

// Schema はフィールド定義の順序付きリスト。
type Schema []Field

// Validate はスキーマに従って入力を検証する。
// ルールがストアへの問い合わせに失敗した場合はそのエラーをそのまま返す。
func (s Schema) Validate(ctx context.Context, in Input) error {
	failures := make(map[string][]string)

	for _, f := range s {
		value, present := in[f.Name]
		if f.Nullable && present && value == nil {
			continue
		}

		for _, rule := range f.Rules {
			// 値が空のとき、暗黙ルール（required等）以外は評価しない
			if !rule.implicit && isEmpty(value) {
				continue
			}

			msg, err := rule.check(ctx, f.Name, value, in)
			if err != nil {
				return fmt.Errorf("validation rule %s on %s: %w", rule.name, f.Name, err)
			}
			if msg == "" {
				continue
			}

			failures[f.Name] = append(failures[f.Name], msg)
			if f.Bail {
				break
			}
		}
	}

	if len(failures) == 0 {
		return nil
	}
	return model.NewValidationError(failures)
}

// ErrMalformedBody はリクエストボディがJSONオブジェクトでないことを表す。
var ErrMalformedBody = errors.New("request body must be a JSON object")

// Decode はJSONボディをInputにデコードする。空ボディは空のInputとして扱う。
// 文字列値はNormalizeで前後の空白を除去する。
func Decode(r io.Reader) (Input, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return Input{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var in Input
	if err := dec.Decode(&in); err != nil || in == nil {
		return nil, ErrMalformedBody
	}
	return in.Normalize(), nil
}

// MalformedBodyError はデコード失敗を "body" フィールドのバリデーションエラーに変換する。
func MalformedBodyError() *model.APIError {
	return model.NewFieldError("body", "The request body must be a valid JSON object.")
}

// isEmpty は値がnull、空文字列、空のコレクションのいずれかかを判定する。
func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case []any:
		return len(x) == 0
	case map[string]any:
		return len(x) == 0
	}
	return false
}

// toInt はjson.Number、数値、数値文字列を整数として解釈する。
func toInt(v any) (int64, bool) {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i, true
		}
		if f, err := x.Float64(); err == nil && f == float64(int64(f)) {
			return int64(f), true
		}
	case float64:
		if x == float64(int64(x)) {
			return int64(x), true
		}
	case int:
		return int64(x), true
	case int64:
		return x, true
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64); err == nil {
			return i, true
		}
	}
	return 0, false
}

// stringify はルール比較用に値を文字列化する。
func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		if x {
			return "1"
		}
		return "0"
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}

// displayName はフィールド名をメッセージ用の表記に変換する（confirmPassword → confirm password）。
func displayName(field string) string {
	var b strings.Builder
	for i, r := range field {
		switch {
		case r == '_' || r == '-':
			b.WriteRune(' ')
		case unicode.IsUpper(r):
			if i > 0 {
				b.WriteRune(' ')
			}
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
