package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/accounts/internal/model"
	"github.com/hitoshi/accounts/internal/policy"
	"github.com/hitoshi/accounts/internal/repository"
	"github.com/hitoshi/accounts/internal/validation"
)

var adminStatusSchema = validation.Schema{
	{Name: "id", Bail: true, Rules: []validation.Rule{validation.Required(), validation.String(), validation.UUID()}},
	{Name: "is_admin", Bail: true, Rules: []validation.Rule{validation.Required(), validation.Integer(), validation.In("0", "1")}},
}

// ListAdmins は論理削除されていない管理者を返す。管理者のみ。
func (s *Service) ListAdmins(ctx context.Context, caller *model.Principal) ([]*model.User, error) {
	if err := policy.CanListAdmins(caller); err != nil {
		return nil, err
	}

	admins, err := s.userRepo.ListAdmins(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list admins: %w", err)
	}
	return admins, nil
}

// SetAdminStatus は管理者フラグを変更する。管理者のみ。
// 自身の降格や最後の管理者の降格も制限しない。
func (s *Service) SetAdminStatus(ctx context.Context, caller *model.Principal, id string, in validation.Input) error {
	input := validation.Input{"id": id}
	if v, ok := in["is_admin"]; ok {
		input["is_admin"] = v
	}
	if err := adminStatusSchema.Validate(ctx, input); err != nil {
		return err
	}
	if err := policy.CanSetAdminStatus(caller); err != nil {
		return err
	}

	user, err := s.find(ctx, id, repository.ScopeActive)
	if err != nil {
		return err
	}

	flag, _ := input.Int("is_admin")
	user.IsAdmin = flag == 1
	user.UpdatedAt = s.now()

	if err := s.userRepo.Update(ctx, user); err != nil {
		return s.mapWriteError(err, id)
	}

	slog.Info("admin status changed",
		slog.String("user_id", id),
		slog.Bool("is_admin", user.IsAdmin),
		slog.String("by", caller.UserID()),
	)
	return nil
}
