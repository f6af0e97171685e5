package user

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hitoshi/accounts/internal/model"
	"github.com/hitoshi/accounts/internal/repository"
)

// memUserRepo はスコープと一意制約を再現するインメモリのUserRepository。
type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User

	updateErr error // 設定時はUpdateがこのエラーを返す
}

func newMemUserRepo(users ...*model.User) *memUserRepo {
	r := &memUserRepo{users: make(map[string]*model.User)}
	for _, u := range users {
		copied := *u
		r.users[u.ID] = &copied
	}
	return r
}

func inScope(u *model.User, scope repository.Scope) bool {
	switch scope {
	case repository.ScopeActive:
		return !u.IsDeleted()
	case repository.ScopeOnlyTrashed:
		return u.IsDeleted()
	}
	return true
}

func (r *memUserRepo) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return repository.ErrEmailTaken
		}
	}
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *memUserRepo) FindByID(_ context.Context, id string, scope repository.Scope) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || !inScope(u, scope) {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (r *memUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email && !u.IsDeleted() {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) EmailTaken(_ context.Context, email, exceptID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email && u.ID != exceptID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memUserRepo) list(match func(*model.User) bool) []*model.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.User
	for _, u := range r.users {
		if match(u) {
			copied := *u
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *memUserRepo) ListActive(context.Context) ([]*model.User, error) {
	return r.list(func(u *model.User) bool { return !u.IsDeleted() }), nil
}

func (r *memUserRepo) ListAdmins(context.Context) ([]*model.User, error) {
	return r.list(func(u *model.User) bool { return !u.IsDeleted() && u.IsAdmin }), nil
}

func (r *memUserRepo) Update(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	existing, ok := r.users[user.ID]
	if !ok {
		return fmt.Errorf("%w: %s", repository.ErrUserNotFound, user.ID)
	}
	for _, u := range r.users {
		if u.ID != user.ID && u.Email == user.Email {
			return repository.ErrEmailTaken
		}
	}
	existing.Name = user.Name
	existing.Email = user.Email
	existing.IsAdmin = user.IsAdmin
	existing.UpdatedAt = user.UpdatedAt
	return nil
}

func (r *memUserRepo) SoftDelete(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || u.IsDeleted() {
		return fmt.Errorf("%w: %s", repository.ErrUserNotFound, id)
	}
	u.DeletedAt = &at
	return nil
}

func (r *memUserRepo) Restore(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return fmt.Errorf("%w: %s", repository.ErrUserNotFound, id)
	}
	u.DeletedAt = nil
	return nil
}

func (r *memUserRepo) DeleteByID(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return fmt.Errorf("%w: %s", repository.ErrUserNotFound, id)
	}
	delete(r.users, id)
	return nil
}

func (r *memUserRepo) PurgeSoftDeletedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, u := range r.users {
		if u.DeletedAt != nil && u.DeletedAt.Before(cutoff) {
			delete(r.users, id)
			n++
		}
	}
	return n, nil
}

var _ repository.UserRepository = (*memUserRepo)(nil)
