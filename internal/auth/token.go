package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/accounts/internal/model"
	"github.com/hitoshi/accounts/internal/repository"
)

// tokenBytes は平文トークンの乱数バイト数。hexで80文字になる。
const tokenBytes = 40

// TokenService はBearerトークンの発行・検証・失効を行う。
// 平文は発行時に一度だけ返し、永続化するのはSHA-256ハッシュのみ。
type TokenService struct {
	repo repository.TokenRepository
	ttl  time.Duration // 0の場合は無期限
	now  func() time.Time
}

// NewTokenService はTokenServiceを生成する。
func NewTokenService(repo repository.TokenRepository, ttl time.Duration) *TokenService {
	return &TokenService{
		repo: repo,
		ttl:  ttl,
		now:  time.Now,
	}
}

// Issue はユーザーに新しいトークンを発行し、平文と保存したレコードを返す。
func (s *TokenService) Issue(ctx context.Context, userID, name string) (string, *model.AccessToken, error) {
	plain, err := generateToken()
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate token: %w", err)
	}

	now := s.now()
	token := &model.AccessToken{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      name,
		TokenHash: HashToken(plain),
		CreatedAt: now,
	}
	if s.ttl > 0 {
		expiresAt := now.Add(s.ttl)
		token.ExpiresAt = &expiresAt
	}

	if err := s.repo.Create(ctx, token); err != nil {
		return "", nil, fmt.Errorf("failed to save token: %w", err)
	}
	return plain, token, nil
}

// Verify は平文トークンに対応する有効なトークンを返す。
// 未知または期限切れの場合はnil, nilを返す。検証成功時はlast_used_atを更新する。
func (s *TokenService) Verify(ctx context.Context, plain string) (*model.AccessToken, error) {
	if plain == "" {
		return nil, nil
	}

	token, err := s.repo.FindByHash(ctx, HashToken(plain))
	if err != nil {
		return nil, fmt.Errorf("failed to find token: %w", err)
	}
	if token == nil {
		return nil, nil
	}
	if token.ExpiresAt != nil && !token.ExpiresAt.After(s.now()) {
		return nil, nil
	}

	now := s.now()
	if err := s.repo.TouchLastUsed(ctx, token.ID, now); err != nil {
		return nil, fmt.Errorf("failed to touch token: %w", err)
	}
	token.LastUsedAt = &now
	return token, nil
}

// Revoke は指定トークンを失効させる。
func (s *TokenService) Revoke(ctx context.Context, tokenID string) error {
	if err := s.repo.DeleteByID(ctx, tokenID); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// RevokeAll はユーザーの全トークンを失効させる。
func (s *TokenService) RevokeAll(ctx context.Context, userID string) error {
	if err := s.repo.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("failed to revoke tokens: %w", err)
	}
	return nil
}

// HashToken は平文トークンの保存用ハッシュ（SHA-256, hex）を返す。
func HashToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

// generateToken は暗号的に安全なトークン文字列を生成する。
func generateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
