package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// PostgresSchemaRepo はPostgreSQLのinformation_schemaを使用したスキーマリポジトリ。
type PostgresSchemaRepo struct {
	db *sql.DB
}

// NewPostgresSchemaRepo はPostgresSchemaRepoを生成する。
func NewPostgresSchemaRepo(db *sql.DB) *PostgresSchemaRepo {
	return &PostgresSchemaRepo{db: db}
}

// TableExists はpublicスキーマに指定名のテーブルが存在するかを返す。
func (r *PostgresSchemaRepo) TableExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = 'public' AND table_name = $1
		)`,
		name,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("テーブル %s の存在確認に失敗しました: %w", name, err)
	}
	return exists, nil
}

// CreateTable はDDLを実行してテーブルを作成する。
func (r *PostgresSchemaRepo) CreateTable(ctx context.Context, ddl string) error {
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("テーブルの作成に失敗しました: %w", err)
	}
	return nil
}

// isUniqueViolation はPostgreSQLの一意制約違反（23505）かどうかを判定する。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// expectAffected はUPDATE/DELETEの影響行数が0の場合にErrNotFoundを返す。
func expectAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新件数の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// compile-time interface check
var _ SchemaRepository = (*PostgresSchemaRepo)(nil)
