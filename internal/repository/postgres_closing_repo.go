package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hitoshi/fechamento/internal/model"
	"github.com/shopspring/decimal"
)

// closingColumns はfechamento_mensalのSELECT対象カラム。scanClosingの引数順と一致させる。
const closingColumns = `id, ano, mes, dias_trabalhados, meta_maxima, meta_minima, valores_diarios, soma_valores`

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// PostgresClosingRepo はPostgreSQLを使用した月次締めリポジトリ。
type PostgresClosingRepo struct {
	db *sql.DB
}

// NewPostgresClosingRepo はPostgresClosingRepoを生成する。
func NewPostgresClosingRepo(db *sql.DB) *PostgresClosingRepo {
	return &PostgresClosingRepo{db: db}
}

// List は全レコードを年月の昇順で返す。
func (r *PostgresClosingRepo) List(ctx context.Context) ([]*model.MonthlyClosing, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+closingColumns+` FROM fechamento_mensal ORDER BY ano, mes`,
	)
	if err != nil {
		return nil, fmt.Errorf("月次締め一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var closings []*model.MonthlyClosing
	for rows.Next() {
		c, err := scanClosing(rows)
		if err != nil {
			return nil, err
		}
		closings = append(closings, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("月次締め一覧の走査に失敗しました: %w", err)
	}

	return closings, nil
}

// FindByID は指定IDのレコードを取得する。見つからない場合はnilを返す。
func (r *PostgresClosingRepo) FindByID(ctx context.Context, id int64) (*model.MonthlyClosing, error) {
	c, err := scanClosing(r.db.QueryRowContext(ctx,
		`SELECT `+closingColumns+` FROM fechamento_mensal WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// FindByYearMonth は年月でレコードを検索する。見つからない場合はnilを返す。
func (r *PostgresClosingRepo) FindByYearMonth(ctx context.Context, year, month int) (*model.MonthlyClosing, error) {
	c, err := scanClosing(r.db.QueryRowContext(ctx,
		`SELECT `+closingColumns+` FROM fechamento_mensal WHERE ano = $1 AND mes = $2`,
		year, month,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Create はレコードを作成し、採番されたIDをclosingに設定する。
func (r *PostgresClosingRepo) Create(ctx context.Context, closing *model.MonthlyClosing) error {
	values, err := encodeDailyValues(closing.DailyValues)
	if err != nil {
		return err
	}

	err = r.db.QueryRowContext(ctx,
		`INSERT INTO fechamento_mensal
			(ano, mes, dias_trabalhados, meta_maxima, meta_minima, valores_diarios, soma_valores)
		 VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7)
		 RETURNING id`,
		closing.Year, closing.Month, closing.DaysWorked,
		closing.MaxGoal, closing.MinGoal, values, closing.SumValues,
	).Scan(&closing.ID)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("月次締めの作成に失敗しました: %w", err)
	}
	return nil
}

// UpdateDailyValues は日次値の配列と合計を同一UPDATEで保存する。
func (r *PostgresClosingRepo) UpdateDailyValues(ctx context.Context, id int64, values []model.DailyValue, sum decimal.Decimal) error {
	encoded, err := encodeDailyValues(values)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE fechamento_mensal SET valores_diarios = $1::jsonb, soma_valores = $2 WHERE id = $3`,
		encoded, sum, id,
	)
	if err != nil {
		return fmt.Errorf("日次値の更新に失敗しました: %w", err)
	}
	return expectAffected(result)
}

// UpdateGoals は最大・最小目標を更新する。nilの値は既存値を維持する。
func (r *PostgresClosingRepo) UpdateGoals(ctx context.Context, id int64, maxGoal, minGoal *decimal.Decimal) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE fechamento_mensal
		 SET meta_maxima = COALESCE($1::numeric, meta_maxima),
		     meta_minima = COALESCE($2::numeric, meta_minima)
		 WHERE id = $3`,
		nullDecimal(maxGoal), nullDecimal(minGoal), id,
	)
	if err != nil {
		return fmt.Errorf("目標の更新に失敗しました: %w", err)
	}
	return expectAffected(result)
}

// UpdateDaysWorked は稼働日数を更新する。
func (r *PostgresClosingRepo) UpdateDaysWorked(ctx context.Context, id int64, daysWorked int) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE fechamento_mensal SET dias_trabalhados = $1 WHERE id = $2`,
		daysWorked, id,
	)
	if err != nil {
		return fmt.Errorf("稼働日数の更新に失敗しました: %w", err)
	}
	return expectAffected(result)
}

// scanClosing は1行をMonthlyClosingに変換する。行が存在しない場合はsql.ErrNoRowsをそのまま返す。
func scanClosing(row rowScanner) (*model.MonthlyClosing, error) {
	c := &model.MonthlyClosing{}
	var rawValues []byte
	err := row.Scan(
		&c.ID, &c.Year, &c.Month, &c.DaysWorked,
		&c.MaxGoal, &c.MinGoal, &rawValues, &c.SumValues,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("月次締め行の読み取りに失敗しました: %w", err)
	}

	if err := json.Unmarshal(rawValues, &c.DailyValues); err != nil {
		return nil, fmt.Errorf("月次締め %d の日次値のデコードに失敗しました: %w", c.ID, err)
	}
	return c, nil
}

// encodeDailyValues は日次値をJSONB用の文字列に変換する。
// lib/pqは[]byteをbyteaとして送るため、文字列で渡す。
func encodeDailyValues(values []model.DailyValue) (string, error) {
	if values == nil {
		values = []model.DailyValue{}
	}
	b, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("日次値のエンコードに失敗しました: %w", err)
	}
	return string(b), nil
}

// nullDecimal はnilをSQLのNULLとして扱うNullDecimalに変換する。
func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*d)
}

// compile-time interface check
var _ ClosingRepository = (*PostgresClosingRepo)(nil)
