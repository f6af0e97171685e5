// Package user はユーザー管理のドメインロジックを提供する。
//
// 各操作は呼び出し元(Principal)を明示的に受け取り、
// バリデーション → 認可 → 存在確認 → 永続化 の順に処理する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/accounts/internal/model"
	"github.com/hitoshi/accounts/internal/policy"
	"github.com/hitoshi/accounts/internal/repository"
	"github.com/hitoshi/accounts/internal/security"
	"github.com/hitoshi/accounts/internal/validation"
)

// Service はユーザー管理のサービス層。
type Service struct {
	userRepo  repository.UserRepository
	sanitizer security.NameSanitizer
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository, sanitizer security.NameSanitizer) *Service {
	return &Service{
		userRepo:  userRepo,
		sanitizer: sanitizer,
		now:       time.Now,
	}
}

var idSchema = validation.Schema{
	{Name: "id", Bail: true, Rules: []validation.Rule{validation.Required(), validation.String(), validation.UUID()}},
}

func validateID(ctx context.Context, id string) error {
	return idSchema.Validate(ctx, validation.Input{"id": id})
}

func (s *Service) updateSchema(selfID string) validation.Schema {
	return validation.Schema{
		{Name: "id", Bail: true, Rules: []validation.Rule{validation.Required(), validation.String(), validation.UUID()}},
		{Name: "name", Bail: true, Rules: []validation.Rule{validation.Filled(), validation.String(), validation.Max(255)}},
		{Name: "email", Bail: true, Rules: []validation.Rule{
			validation.Filled(), validation.String(), validation.Email(), validation.Max(255),
			validation.Unique(func(ctx context.Context, email string) (bool, error) {
				return s.userRepo.EmailTaken(ctx, email, selfID)
			}),
		}},
	}
}

// List は論理削除されていない全ユーザーを返す。管理者のみ。
func (s *Service) List(ctx context.Context, caller *model.Principal) ([]*model.User, error) {
	if err := policy.CanListUsers(caller); err != nil {
		return nil, err
	}

	users, err := s.userRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// Show は有効なユーザーを1件返す。
func (s *Service) Show(ctx context.Context, caller *model.Principal, id string) (*model.User, error) {
	if err := validateID(ctx, id); err != nil {
		return nil, err
	}
	if err := policy.CanView(caller, id); err != nil {
		return nil, err
	}
	return s.find(ctx, id, repository.ScopeActive)
}

// Update は名前・メールアドレスのうち送られたものだけを更新する。
func (s *Service) Update(ctx context.Context, caller *model.Principal, in validation.Input) error {
	in = in.Normalize()
	id := in.String("id")
	if err := s.updateSchema(id).Validate(ctx, in); err != nil {
		return err
	}
	if !in.Has("name") && !in.Has("email") {
		return model.NewValidationError(map[string][]string{
			"name":  {"No fields to update"},
			"email": {"No fields to update"},
		})
	}
	if err := policy.CanUpdate(caller, id); err != nil {
		return err
	}

	user, err := s.find(ctx, id, repository.ScopeActive)
	if err != nil {
		return err
	}

	if in.Has("name") {
		name := s.sanitizer.Sanitize(in.String("name"))
		if name == "" {
			return model.NewFieldError("name", "The name field must have a value.")
		}
		user.Name = name
	}
	if in.Has("email") {
		user.Email = in.String("email")
	}
	user.UpdatedAt = s.now()

	if err := s.userRepo.Update(ctx, user); err != nil {
		return s.mapWriteError(err, id)
	}

	slog.Info("user updated",
		slog.String("user_id", id),
		slog.String("by", caller.UserID()),
	)
	return nil
}

// SoftDelete はユーザーを論理削除する。発行済みトークンはそのまま残す。
func (s *Service) SoftDelete(ctx context.Context, caller *model.Principal, id string) error {
	if err := validateID(ctx, id); err != nil {
		return err
	}
	if err := policy.CanSoftDelete(caller, id); err != nil {
		return err
	}
	if _, err := s.find(ctx, id, repository.ScopeActive); err != nil {
		return err
	}

	if err := s.userRepo.SoftDelete(ctx, id, s.now()); err != nil {
		return s.mapWriteError(err, id)
	}

	slog.Info("user soft-deleted",
		slog.String("user_id", id),
		slog.String("by", caller.UserID()),
	)
	return nil
}

// Restore は論理削除を取り消す。本人のみ。
func (s *Service) Restore(ctx context.Context, caller *model.Principal, id string) error {
	if err := validateID(ctx, id); err != nil {
		return err
	}
	if err := policy.CanRestore(caller, id); err != nil {
		return err
	}
	if _, err := s.find(ctx, id, repository.ScopeWithTrashed); err != nil {
		return err
	}

	if err := s.userRepo.Restore(ctx, id); err != nil {
		return s.mapWriteError(err, id)
	}

	slog.Info("user restored", slog.String("user_id", id))
	return nil
}

// Purge はユーザーを物理削除する。論理削除済みも対象。
// access_tokensはCASCADEで削除される。
func (s *Service) Purge(ctx context.Context, caller *model.Principal, id string) error {
	if err := validateID(ctx, id); err != nil {
		return err
	}
	if err := policy.CanPurge(caller, id); err != nil {
		return err
	}
	if _, err := s.find(ctx, id, repository.ScopeWithTrashed); err != nil {
		return err
	}

	if err := s.userRepo.DeleteByID(ctx, id); err != nil {
		return s.mapWriteError(err, id)
	}

	slog.Info("user purged",
		slog.String("user_id", id),
		slog.String("by", caller.UserID()),
	)
	return nil
}

// find は指定スコープでユーザーを取得し、見つからない場合はNOT_FOUNDを返す。
func (s *Service) find(ctx context.Context, id string, scope repository.Scope) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, id, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewNotFoundError("user", id)
	}
	return user, nil
}

// mapWriteError は書き込み時のリポジトリエラーをドメインエラーに変換する。
func (s *Service) mapWriteError(err error, id string) error {
	switch {
	case errors.Is(err, repository.ErrEmailTaken):
		e := model.NewFieldError("email", "The email has already been taken.")
		e.Err = err
		return e
	case errors.Is(err, repository.ErrUserNotFound):
		// 存在確認後に並行して削除された場合
		return model.NewNotFoundError("user", id)
	}
	return fmt.Errorf("failed to write user: %w", err)
}
