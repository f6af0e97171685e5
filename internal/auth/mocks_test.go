package auth

import (
	"context"
	"sync"
	"time"

	"github.com/hitoshi/accounts/internal/model"
	"github.com/hitoshi/accounts/internal/repository"
)

// --- モック定義 ---

type mockUserRepo struct {
	createFn      func(ctx context.Context, user *model.User) error
	findByIDFn    func(ctx context.Context, id string, scope repository.Scope) (*model.User, error)
	findByEmailFn func(ctx context.Context, email string) (*model.User, error)
	emailTakenFn  func(ctx context.Context, email, exceptID string) (bool, error)
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string, scope repository.Scope) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id, scope)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockUserRepo) EmailTaken(ctx context.Context, email, exceptID string) (bool, error) {
	if m.emailTakenFn != nil {
		return m.emailTakenFn(ctx, email, exceptID)
	}
	return false, nil
}

func (m *mockUserRepo) ListActive(context.Context) ([]*model.User, error) { return nil, nil }
func (m *mockUserRepo) ListAdmins(context.Context) ([]*model.User, error) { return nil, nil }
func (m *mockUserRepo) Update(context.Context, *model.User) error         { return nil }
func (m *mockUserRepo) SoftDelete(context.Context, string, time.Time) error {
	return nil
}
func (m *mockUserRepo) Restore(context.Context, string) error    { return nil }
func (m *mockUserRepo) DeleteByID(context.Context, string) error { return nil }
func (m *mockUserRepo) PurgeSoftDeletedBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}

// memTokenRepo はハッシュをキーにトークンを保持するインメモリ実装。
type memTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]*model.AccessToken
}

func newMemTokenRepo() *memTokenRepo {
	return &memTokenRepo{tokens: make(map[string]*model.AccessToken)}
}

func (r *memTokenRepo) Create(_ context.Context, token *model.AccessToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *token
	r.tokens[token.TokenHash] = &copied
	return nil
}

func (r *memTokenRepo) FindByHash(_ context.Context, tokenHash string) (*model.AccessToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[tokenHash]
	if !ok {
		return nil, nil
	}
	copied := *token
	return &copied, nil
}

func (r *memTokenRepo) TouchLastUsed(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, token := range r.tokens {
		if token.ID == id {
			token.LastUsedAt = &at
		}
	}
	return nil
}

func (r *memTokenRepo) DeleteByID(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for hash, token := range r.tokens {
		if token.ID == id {
			delete(r.tokens, hash)
		}
	}
	return nil
}

func (r *memTokenRepo) DeleteByUserID(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for hash, token := range r.tokens {
		if token.UserID == userID {
			delete(r.tokens, hash)
		}
	}
	return nil
}

func (r *memTokenRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tokens)
}

// --- compile-time interface checks ---
var _ repository.UserRepository = (*mockUserRepo)(nil)
var _ repository.TokenRepository = (*memTokenRepo)(nil)
