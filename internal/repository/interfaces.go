// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/fechamento/internal/model"
	"github.com/shopspring/decimal"
)

// ErrNotFound は更新対象の行が存在しなかったことを表す。
var ErrNotFound = errors.New("record not found")

// ErrDuplicate は一意制約違反で行を作成できなかったことを表す。
var ErrDuplicate = errors.New("duplicate record")

// SchemaRepository は起動時のテーブル存在確認と作成を行うインターフェース。
type SchemaRepository interface {
	// TableExists はpublicスキーマに指定名のテーブルが存在するかを返す。
	TableExists(ctx context.Context, name string) (bool, error)

	// CreateTable はDDLを実行してテーブルを作成する。
	CreateTable(ctx context.Context, ddl string) error
}

// SelectionRepository は選択中の年月（シングルトン）の永続化インターフェース。
type SelectionRepository interface {
	// List は全行を返す。運用上は1行のみ。
	List(ctx context.Context) ([]*model.Selection, error)

	// FindFirst はID最小の行を返す。存在しない場合はnilを返す。
	FindFirst(ctx context.Context) (*model.Selection, error)

	// Count は行数を返す。
	Count(ctx context.Context) (int, error)

	// Create は行を作成し、採番されたIDをselectionに設定する。
	Create(ctx context.Context, selection *model.Selection) error

	// UpdateByID は指定IDの行の年月を更新する。対象行がない場合はErrNotFoundを返す。
	UpdateByID(ctx context.Context, id int64, year, month int) error
}

// ClosingRepository は月次締めレコードの永続化インターフェース。
type ClosingRepository interface {
	// List は全レコードを年月の昇順で返す。
	List(ctx context.Context) ([]*model.MonthlyClosing, error)

	// FindByID は指定IDのレコードを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.MonthlyClosing, error)

	// FindByYearMonth は年月でレコードを検索する。見つからない場合はnilを返す。
	FindByYearMonth(ctx context.Context, year, month int) (*model.MonthlyClosing, error)

	// Create はレコードを作成し、採番されたIDをclosingに設定する。
	// 同じ年月のレコードが既に存在する場合はErrDuplicateを返す。
	Create(ctx context.Context, closing *model.MonthlyClosing) error

	// UpdateDailyValues は日次値の配列と合計を同一UPDATEで保存する。
	UpdateDailyValues(ctx context.Context, id int64, values []model.DailyValue, sum decimal.Decimal) error

	// UpdateGoals は最大・最小目標を更新する。nilの値は変更しない。
	UpdateGoals(ctx context.Context, id int64, maxGoal, minGoal *decimal.Decimal) error

	// UpdateDaysWorked は稼働日数を更新する。
	UpdateDaysWorked(ctx context.Context, id int64, daysWorked int) error
}

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレス（大文字小文字を区別しない）でユーザーを取得する。
	// 見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。メールアドレスが重複する場合はErrDuplicateを返す。
	Create(ctx context.Context, user *model.User) error
}

// PasswordResetRepository はパスワードリセットコードの永続化インターフェース。
type PasswordResetRepository interface {
	// Replace はユーザーの既存コードを削除し、新しいコードを同一トランザクションで保存する。
	Replace(ctx context.Context, code *model.PasswordResetCode) error

	// FindValid はメールアドレスとコードが一致し、期限内のコードを取得する。
	// 見つからない場合はnilを返す。
	FindValid(ctx context.Context, email, code string) (*model.PasswordResetCode, error)

	// ConsumeAndSetPassword はユーザーのパスワードを更新し、そのユーザーの全コードを
	// 同一トランザクションで削除する。
	ConsumeAndSetPassword(ctx context.Context, userID, passwordHash string) error
}
