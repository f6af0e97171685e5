// Package auth は登録・ログイン・ログアウトとBearerトークン認証を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/accounts/internal/model"
	"github.com/hitoshi/accounts/internal/repository"
	"github.com/hitoshi/accounts/internal/security"
	"github.com/hitoshi/accounts/internal/validation"
)

// トークン名
const (
	RegisterTokenName = "registerToken"
	LoginTokenName    = "loginToken"
)

// PasswordHasher はパスワードのハッシュ化と照合のインターフェース。
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) (bool, error)
}

// RegisterResult は登録結果。
type RegisterResult struct {
	Name  string
	Email string
	Token string
}

// LoginResult はログイン結果。
type LoginResult struct {
	User  *model.User
	Token string
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	users     repository.UserRepository
	tokens    *TokenService
	hasher    PasswordHasher
	sanitizer security.NameSanitizer
	now       func() time.Time

	// 存在しないメールアドレスでも照合コストを揃えるためのダミーハッシュ
	dummyOnce sync.Once
	dummyHash string
}

// NewService はServiceを生成する。
func NewService(
	users repository.UserRepository,
	tokens *TokenService,
	hasher PasswordHasher,
	sanitizer security.NameSanitizer,
) *Service {
	return &Service{
		users:     users,
		tokens:    tokens,
		hasher:    hasher,
		sanitizer: sanitizer,
		now:       time.Now,
	}
}

func (s *Service) registerSchema() validation.Schema {
	return validation.Schema{
		{Name: "name", Bail: true, Rules: []validation.Rule{validation.Required(), validation.String(), validation.Max(255)}},
		{Name: "email", Bail: true, Rules: []validation.Rule{
			validation.Required(), validation.String(), validation.Email(), validation.Max(255),
			validation.Unique(func(ctx context.Context, email string) (bool, error) {
				return s.users.EmailTaken(ctx, email, "")
			}),
		}},
		{Name: "password", Rules: []validation.Rule{validation.Required(), validation.String()}},
		{Name: "confirmPassword", Rules: []validation.Rule{validation.Required(), validation.String(), validation.Same("password")}},
	}
}

var loginSchema = validation.Schema{
	{Name: "email", Rules: []validation.Rule{validation.Required(), validation.String(), validation.Email()}},
	{Name: "password", Rules: []validation.Rule{validation.Required(), validation.String()}},
}

// Register は新規ユーザーを作成し、registerTokenを発行する。
func (s *Service) Register(ctx context.Context, in validation.Input) (*RegisterResult, error) {
	in = in.Normalize()
	if err := s.registerSchema().Validate(ctx, in); err != nil {
		return nil, err
	}

	name := s.sanitizer.Sanitize(in.String("name"))
	if name == "" {
		return nil, model.NewFieldError("name", "The name field is required.")
	}

	hash, err := s.hasher.Hash(in.String("password"))
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &model.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        in.String("email"),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, emailTakenError(err)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	plain, _, err := s.tokens.Issue(ctx, user.ID, RegisterTokenName)
	if err != nil {
		return nil, err
	}

	slog.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return &RegisterResult{Name: user.Name, Email: user.Email, Token: plain}, nil
}

// Login は認証情報を検証し、loginTokenを発行する。
// メールアドレス未登録とパスワード不一致は区別せずINVALID_CREDENTIALSを返す。
func (s *Service) Login(ctx context.Context, in validation.Input) (*LoginResult, error) {
	in = in.Normalize()
	if err := loginSchema.Validate(ctx, in); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, in.String("email"))
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if user == nil {
		// 照合時間からメールアドレスの存否を推測されないようにする
		_, _ = s.hasher.Compare(s.dummy(), in.String("password"))
		return nil, model.NewInvalidCredentialsError()
	}

	ok, err := s.hasher.Compare(user.PasswordHash, in.String("password"))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.NewInvalidCredentialsError()
	}

	plain, _, err := s.tokens.Issue(ctx, user.ID, LoginTokenName)
	if err != nil {
		return nil, err
	}

	slog.Info("user logged in", slog.String("user_id", user.ID))
	return &LoginResult{User: user, Token: plain}, nil
}

// Logout は現在のリクエストで使用したトークンのみを失効させる。
func (s *Service) Logout(ctx context.Context, caller *model.Principal) error {
	if caller == nil || caller.TokenID == "" {
		return model.NewUnauthenticatedError("Unauthenticated.")
	}

	if err := s.tokens.Revoke(ctx, caller.TokenID); err != nil {
		return err
	}

	slog.Info("user logged out", slog.String("user_id", caller.UserID()))
	return nil
}

// Authenticate は平文トークンから呼び出し元を特定する。
// 論理削除済みユーザーも自身の復元のため認証可能とする。
func (s *Service) Authenticate(ctx context.Context, plain string) (*model.Principal, error) {
	token, err := s.tokens.Verify(ctx, plain)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, model.NewUnauthenticatedError("Unauthenticated.")
	}

	user, err := s.users.FindByID(ctx, token.UserID, repository.ScopeWithTrashed)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUnauthenticatedError("Unauthenticated.")
	}

	return &model.Principal{User: user, TokenID: token.ID}, nil
}

func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash(uuid.New().String())
	})
	return s.dummyHash
}

// emailTakenError は一意制約違反をemailフィールドのバリデーションエラーに変換する。
func emailTakenError(cause error) *model.APIError {
	e := model.NewFieldError("email", "The email has already been taken.")
	e.Err = cause
	return e
}
