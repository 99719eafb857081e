package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/authgate/internal/model"
	"github.com/hitoshi/authgate/internal/repository"
	"github.com/hitoshi/authgate/internal/security"
)

// Service は認証に関するビジネスロジックを提供する。
// ドメインエラーは*model.APIErrorとして返し、ハンドラー層の境界で
// HTTPステータスにマッピングされる。
type Service struct {
	users  repository.UserRepository
	hasher *security.PasswordHasher
	tokens *TokenManager
}

// NewService はServiceを生成する。
func NewService(users repository.UserRepository, hasher *security.PasswordHasher, tokens *TokenManager) *Service {
	return &Service{
		users:  users,
		hasher: hasher,
		tokens: tokens,
	}
}

// NormalizeEmail はメールアドレスを小文字化・前後空白除去して正規化する。
// 保存時と検索時の両方で同じ正規化を適用する。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup は新規ユーザーを登録する。
// 事前のFindByEmailチェックとCreateの間は同時登録に対して競合しうるため、
// ストレージ層の一意制約違反もDUPLICATE_EMAILとして扱われる（リポジトリ側で変換）。
func (s *Service) Signup(ctx context.Context, email, password string) (*model.User, error) {
	if strings.TrimSpace(email) == "" {
		return nil, model.NewValidationError("メールアドレス")
	}
	if password == "" {
		return nil, model.NewValidationError("パスワード")
	}

	normalized := NormalizeEmail(email)

	existing, err := s.users.FindByEmail(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, model.NewDuplicateEmailError()
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Email:        normalized,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	slog.Info("new user registered",
		slog.String("user_id", user.ID),
	)

	return user, nil
}

// Login は認証情報を検証し、アクセストークンを発行する。
// メールアドレス不存在とパスワード不一致は、ユーザー列挙を防ぐため
// 同一のINVALID_CREDENTIALSエラーとして返す。
func (s *Service) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	if strings.TrimSpace(email) == "" {
		return "", nil, model.NewValidationError("メールアドレス")
	}
	if password == "" {
		return "", nil, model.NewValidationError("パスワード")
	}

	user, err := s.users.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return "", nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return "", nil, model.NewInvalidCredentialsError()
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return "", nil, model.NewInvalidCredentialsError()
	}

	if !user.IsActive {
		return "", nil, model.NewAccountInactiveError()
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue token: %w", err)
	}

	slog.Info("user logged in",
		slog.String("user_id", user.ID),
	)

	return token, user, nil
}

// ValidateToken はトークンを検証し、対応するユーザーを返す。
// トークンの有効期間はユーザーレコードの寿命より長く残りうるため、
// 検証成功後もユーザーの存在確認を行う。
func (s *Service) ValidateToken(ctx context.Context, tokenString string) (*model.User, error) {
	userID, err := s.tokens.Verify(tokenString)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	if !user.IsActive {
		return nil, model.NewAccountInactiveError()
	}

	return user, nil
}

// GetCurrentUser は検証済みのユーザーIDからユーザーを取得する。
// ValidateTokenと異なりis_activeを再チェックしない。
func (s *Service) GetCurrentUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	return user, nil
}
