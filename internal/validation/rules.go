package validation

import (
	"context"
	"fmt"
	"net/mail"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Rule は1つの検証ルール。checkは失敗時にメッセージを返す。
type Rule struct {
	name     string
	implicit bool // 値が空でも評価する
	check    func(ctx context.Context, field string, value any, in Input) (string, error)
}

// Lookup はストアへの問い合わせ関数。Existsでは存在、Uniqueでは使用済みを返す。
type Lookup func(ctx context.Context, value string) (bool, error)

// Required は値が存在し空でないことを要求する。
func Required() Rule {
	return Rule{name: "required", implicit: true, check: func(_ context.Context, field string, value any, _ Input) (string, error) {
		if isEmpty(value) {
			return fmt.Sprintf("The %s field is required.", displayName(field)), nil
		}
		return "", nil
	}}
}

// Filled はフィールドが送られた場合に空でないことを要求する。
func Filled() Rule {
	return Rule{name: "filled", implicit: true, check: func(_ context.Context, field string, value any, in Input) (string, error) {
		if _, present := in[field]; present && isEmpty(value) {
			return fmt.Sprintf("The %s field must have a value.", displayName(field)), nil
		}
		return "", nil
	}}
}

// String は値が文字列であることを要求する。
func String() Rule {
	return Rule{name: "string", check: func(_ context.Context, field string, value any, _ Input) (string, error) {
		if _, ok := value.(string); !ok {
			return fmt.Sprintf("The %s field must be a string.", displayName(field)), nil
		}
		return "", nil
	}}
}

// Integer は値が整数として解釈できることを要求する。
func Integer() Rule {
	return Rule{name: "integer", check: func(_ context.Context, field string, value any, _ Input) (string, error) {
		if _, ok := toInt(value); !ok {
			return fmt.Sprintf("The %s field must be an integer.", displayName(field)), nil
		}
		return "", nil
	}}
}

// Max は文字列の文字数（または整数値）の上限を課す。
func Max(n int) Rule {
	return Rule{name: "max", check: func(_ context.Context, field string, value any, _ Input) (string, error) {
		if s, ok := value.(string); ok {
			if utf8.RuneCountInString(s) > n {
				return fmt.Sprintf("The %s field must not be greater than %d characters.", displayName(field), n), nil
			}
			return "", nil
		}
		if i, ok := toInt(value); ok && i > int64(n) {
			return fmt.Sprintf("The %s field must not be greater than %d.", displayName(field), n), nil
		}
		return "", nil
	}}
}

// Email は値が表示名を含まない単一のメールアドレスであることを要求する。
func Email() Rule {
	return Rule{name: "email", check: func(_ context.Context, field string, value any, _ Input) (string, error) {
		msg := fmt.Sprintf("The %s field must be a valid email address.", displayName(field))
		s, ok := value.(string)
		if !ok {
			return msg, nil
		}
		addr, err := mail.ParseAddress(s)
		// 表示名付きや前後に空白を含む形式は受け付けない
		if err != nil || addr.Address != s {
			return msg, nil
		}
		return "", nil
	}}
}

// Same は値が別フィールドの値と一致することを要求する。
func Same(other string) Rule {
	return Rule{name: "same", check: func(_ context.Context, field string, value any, in Input) (string, error) {
		if stringify(value) != stringify(in[other]) {
			return fmt.Sprintf("The %s field must match %s.", displayName(field), displayName(other)), nil
		}
		return "", nil
	}}
}

// In は値が列挙値のいずれかであることを要求する。
func In(values ...string) Rule {
	return Rule{name: "in", check: func(_ context.Context, field string, value any, _ Input) (string, error) {
		got := stringify(value)
		for _, v := range values {
			if got == v {
				return "", nil
			}
		}
		return fmt.Sprintf("The selected %s is invalid.", displayName(field)), nil
	}}
}

// UUID は値がUUID形式であることを要求する。
func UUID() Rule {
	return Rule{name: "uuid", check: func(_ context.Context, field string, value any, _ Input) (string, error) {
		s, ok := value.(string)
		if !ok {
			return fmt.Sprintf("The %s field must be a valid UUID.", displayName(field)), nil
		}
		if _, err := uuid.Parse(s); err != nil {
			return fmt.Sprintf("The %s field must be a valid UUID.", displayName(field)), nil
		}
		return "", nil
	}}
}

// Exists はストア上に値が存在することを要求する。
func Exists(lookup Lookup) Rule {
	return Rule{name: "exists", check: func(ctx context.Context, field string, value any, _ Input) (string, error) {
		found, err := lookup(ctx, stringify(value))
		if err != nil {
			return "", err
		}
		if !found {
			return fmt.Sprintf("The selected %s is invalid.", displayName(field)), nil
		}
		return "", nil
	}}
}

// Unique はストア上で値が未使用であることを要求する。
func Unique(taken Lookup) Rule {
	return Rule{name: "unique", check: func(ctx context.Context, field string, value any, _ Input) (string, error) {
		used, err := taken(ctx, stringify(value))
		if err != nil {
			return "", err
		}
		if used {
			return fmt.Sprintf("The %s has already been taken.", displayName(field)), nil
		}
		return "", nil
	}}
}
