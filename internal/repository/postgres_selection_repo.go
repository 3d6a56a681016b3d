package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/fechamento/internal/model"
)

// PostgresSelectionRepo はPostgreSQLを使用した選択年月リポジトリ。
type PostgresSelectionRepo struct {
	db *sql.DB
}

// NewPostgresSelectionRepo はPostgresSelectionRepoを生成する。
func NewPostgresSelectionRepo(db *sql.DB) *PostgresSelectionRepo {
	return &PostgresSelectionRepo{db: db}
}

// List は全行を返す。
func (r *PostgresSelectionRepo) List(ctx context.Context) ([]*model.Selection, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, ano, mes FROM selecionado ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("選択年月一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var selections []*model.Selection
	for rows.Next() {
		s := &model.Selection{}
		if err := rows.Scan(&s.ID, &s.Year, &s.Month); err != nil {
			return nil, fmt.Errorf("選択年月行の読み取りに失敗しました: %w", err)
		}
		selections = append(selections, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("選択年月一覧の走査に失敗しました: %w", err)
	}

	return selections, nil
}

// FindFirst はID最小の行を返す。存在しない場合はnilを返す。
func (r *PostgresSelectionRepo) FindFirst(ctx context.Context) (*model.Selection, error) {
	s := &model.Selection{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, ano, mes FROM selecionado ORDER BY id LIMIT 1`,
	).Scan(&s.ID, &s.Year, &s.Month)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("選択年月の取得に失敗しました: %w", err)
	}

	return s, nil
}

// Count は行数を返す。
func (r *PostgresSelectionRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM selecionado`).Scan(&count); err != nil {
		return 0, fmt.Errorf("選択年月の件数取得に失敗しました: %w", err)
	}
	return count, nil
}

// Create は行を作成し、採番されたIDをselectionに設定する。
func (r *PostgresSelectionRepo) Create(ctx context.Context, selection *model.Selection) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO selecionado (ano, mes) VALUES ($1, $2) RETURNING id`,
		selection.Year, selection.Month,
	).Scan(&selection.ID)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("選択年月の作成に失敗しました: %w", err)
	}
	return nil
}

// UpdateByID は指定IDの行の年月を更新する。
func (r *PostgresSelectionRepo) UpdateByID(ctx context.Context, id int64, year, month int) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE selecionado SET ano = $1, mes = $2 WHERE id = $3`,
		year, month, id,
	)
	if err != nil {
		return fmt.Errorf("選択年月の更新に失敗しました: %w", err)
	}
	return expectAffected(result)
}

// compile-time interface check
var _ SelectionRepository = (*PostgresSelectionRepo)(nil)
