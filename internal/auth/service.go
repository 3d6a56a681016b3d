// Package auth はログイン、トークン検証、パスワードリセットを提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/fechamento/internal/metrics"
	"github.com/hitoshi/fechamento/internal/model"
	"github.com/hitoshi/fechamento/internal/repository"
)

// MinPasswordLength は新しいパスワードの最小文字数。
const MinPasswordLength = 6

// MaxPasswordLength は新しいパスワードの最大バイト数。bcryptは72バイトを超える入力を扱えない。
const MaxPasswordLength = 72

// timingPassword は未登録メールのログイン時に照合するダミーハッシュの元。
const timingPassword = "fechamento-timing-equalizer"

// DefaultResetCodeTTL はリセットコードの有効期間のデフォルト値。
const DefaultResetCodeTTL = time.Hour

// Mailer はリセットコードをメールで送るインターフェース。
type Mailer interface {
	SendResetCode(ctx context.Context, to, name, code string, expiresAt time.Time) error
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	ResetCodeTTL time.Duration // リセットコードの有効期間
}

// LoginResult はログイン成功時の結果。
type LoginResult struct {
	Token string
	User  *model.User
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo  repository.UserRepository
	resetRepo repository.PasswordResetRepository
	tokens    *TokenIssuer
	hasher    PasswordHasher
	mailer    Mailer
	metrics   metrics.MetricsCollector
	config    ServiceConfig
	now       func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	resetRepo repository.PasswordResetRepository,
	tokens *TokenIssuer,
	hasher PasswordHasher,
	mailer Mailer,
	mc metrics.MetricsCollector,
	config ServiceConfig,
) *Service {
	if config.ResetCodeTTL <= 0 {
		config.ResetCodeTTL = DefaultResetCodeTTL
	}
	if mc == nil {
		mc = metrics.NopCollector{}
	}
	return &Service{
		userRepo:  userRepo,
		resetRepo: resetRepo,
		tokens:    tokens,
		hasher:    hasher,
		mailer:    mailer,
		metrics:   mc,
		config:    config,
		now:       time.Now,
	}
}

// Login はメールアドレスとパスワードを照合し、トークンを発行する。
// 未登録のメールアドレスとパスワード不一致は区別せず、どちらもUnauthorizedを返す。
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, model.NewValidationError("E-mail e senha são obrigatórios")
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		// 応答時間で登録有無が分からないよう、未登録でも同じコストの照合を行う
		s.hasher.Compare(s.timingHash(), password)
		s.metrics.RecordLogin(false)
		slog.Warn("login failed")
		return nil, model.NewUnauthorizedError()
	}
	if !s.hasher.Compare(user.PasswordHash, password) {
		s.metrics.RecordLogin(false)
		slog.Warn("login failed", slog.String("user_id", user.ID))
		return nil, model.NewUnauthorizedError()
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordLogin(true)
	slog.Info("user logged in", slog.String("user_id", user.ID))
	return &LoginResult{Token: token, User: user}, nil
}

// VerifyToken はトークンを検証し、ユーザーIDを返す。
func (s *Service) VerifyToken(token string) (string, error) {
	if token == "" {
		return "", model.NewUnauthorizedError()
	}
	userID, err := s.tokens.Parse(token)
	if err != nil {
		return "", model.NewUnauthorizedError()
	}
	return userID, nil
}

// GetCurrentUser はユーザーIDからユーザーを取得する。
func (s *Service) GetCurrentUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// RequestPasswordReset はリセットコードを発行してメールで送る。
// 同じユーザーの未使用コードは新しいコードで置き換える。メール送信の失敗はそのまま返し、再試行はしない。
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return model.NewValidationError("E-mail é obrigatório")
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	code, err := GenerateResetCode()
	if err != nil {
		return err
	}

	now := s.now()
	resetCode := &model.PasswordResetCode{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Code:      code,
		ExpiresAt: now.Add(s.config.ResetCodeTTL),
		CreatedAt: now,
	}
	if err := s.resetRepo.Replace(ctx, resetCode); err != nil {
		return fmt.Errorf("failed to save reset code: %w", err)
	}

	if err := s.mailer.SendResetCode(ctx, user.Email, user.Name, code, resetCode.ExpiresAt); err != nil {
		s.metrics.RecordResetEmail(false)
		return fmt.Errorf("failed to send reset code email: %w", err)
	}

	s.metrics.RecordResetEmail(true)
	slog.Info("password reset code sent", slog.String("user_id", user.ID))
	return nil
}

// ResetPassword はメールアドレスとコードの組を検証し、パスワードを更新する。
// 成功したコードはユーザーの他のコードとともに削除されるため、再利用できない。
func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email = strings.TrimSpace(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" || newPassword == "" {
		return model.NewValidationError("E-mail, código e nova senha são obrigatórios")
	}
	if len([]rune(newPassword)) < MinPasswordLength {
		return model.NewValidationError(fmt.Sprintf("A nova senha deve ter pelo menos %d caracteres", MinPasswordLength))
	}
	if len(newPassword) > MaxPasswordLength {
		return model.NewValidationError(fmt.Sprintf("A nova senha deve ter no máximo %d bytes", MaxPasswordLength))
	}

	resetCode, err := s.resetRepo.FindValid(ctx, email, code)
	if err != nil {
		return fmt.Errorf("failed to find reset code: %w", err)
	}
	if resetCode == nil || resetCode.IsExpired(s.now()) {
		return model.NewInvalidResetCodeError()
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	if err := s.resetRepo.ConsumeAndSetPassword(ctx, resetCode.UserID, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewInvalidResetCodeError()
		}
		return fmt.Errorf("failed to reset password: %w", err)
	}

	slog.Info("password reset", slog.String("user_id", resetCode.UserID))
	return nil
}

// CreateUser はユーザーを作成する。運用者がcreate-userサブコマンドから利用する。
func (s *Service) CreateUser(ctx context.Context, email, name, password string) (*model.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, model.NewValidationError("E-mail e senha são obrigatórios")
	}
	if len([]rune(password)) < MinPasswordLength {
		return nil, model.NewValidationError(fmt.Sprintf("A senha deve ter pelo menos %d caracteres", MinPasswordLength))
	}
	if len(password) > MaxPasswordLength {
		return nil, model.NewValidationError(fmt.Sprintf("A senha deve ter no máximo %d bytes", MaxPasswordLength))
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewValidationError("E-mail já cadastrado")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("user created", slog.String("user_id", user.ID))
	return user, nil
}

// timingHash は未登録ユーザーの照合に使うハッシュを初回呼び出し時に生成して返す。
func (s *Service) timingHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(timingPassword)
		if err != nil {
			slog.Error("failed to prepare timing hash", slog.Any("error", err))
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}
