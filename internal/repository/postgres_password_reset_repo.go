package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/fechamento/internal/model"
)

// PostgresPasswordResetRepo はPostgreSQLを使用したパスワードリセットコードリポジトリ。
type PostgresPasswordResetRepo struct {
	db *sql.DB
}

// NewPostgresPasswordResetRepo はPostgresPasswordResetRepoを生成する。
func NewPostgresPasswordResetRepo(db *sql.DB) *PostgresPasswordResetRepo {
	return &PostgresPasswordResetRepo{db: db}
}

// Replace はユーザーの既存コードを削除し、新しいコードを同一トランザクションで保存する。
func (r *PostgresPasswordResetRepo) Replace(ctx context.Context, code *model.PasswordResetCode) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 未使用の古いコードを無効化
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM password_reset_codes WHERE user_id = $1`,
		code.UserID,
	); err != nil {
		return fmt.Errorf("failed to delete previous reset codes: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO password_reset_codes (id, user_id, code, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		code.ID, code.UserID, code.Code, code.ExpiresAt, code.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert reset code: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// FindValid はメールアドレスとコードが一致し、期限内のコードを取得する。
// 見つからない場合はnilを返す。
func (r *PostgresPasswordResetRepo) FindValid(ctx context.Context, email, code string) (*model.PasswordResetCode, error) {
	c := &model.PasswordResetCode{}
	err := r.db.QueryRowContext(ctx,
		`SELECT prc.id, prc.user_id, prc.code, prc.expires_at, prc.created_at
		 FROM password_reset_codes prc
		 JOIN users u ON u.id = prc.user_id
		 WHERE lower(u.email) = lower($1) AND prc.code = $2 AND prc.expires_at > now()
		 ORDER BY prc.created_at DESC
		 LIMIT 1`,
		email, code,
	).Scan(&c.ID, &c.UserID, &c.Code, &c.ExpiresAt, &c.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find reset code: %w", err)
	}

	return c, nil
}

// ConsumeAndSetPassword はユーザーのパスワードを更新し、そのユーザーの全コードを削除する。
func (r *PostgresPasswordResetRepo) ConsumeAndSetPassword(ctx context.Context, userID, passwordHash string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE users SET password = $1, updated_at = now() WHERE id = $2`,
		passwordHash, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if err := expectAffected(result); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM password_reset_codes WHERE user_id = $1`,
		userID,
	); err != nil {
		return fmt.Errorf("failed to delete reset codes: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// compile-time interface check
var _ PasswordResetRepository = (*PostgresPasswordResetRepo)(nil)
