// Package bootstrap は起動時にコアテーブルと初期データを用意する。
//
// 処理の流れ:
//  1. selecionado と fechamento_mensal の存在を確認し、なければ作成する
//  2. selecionado が空なら当月（固定UTCオフセット基準）を登録する
//  3. 当月の fechamento_mensal がなければ暦日数分の0で初期化して登録する
//
// いずれも存在確認と一意制約で冪等になっており、再起動のたびに実行してよい。
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/fechamento/internal/closing"
	"github.com/hitoshi/fechamento/internal/database"
	"github.com/hitoshi/fechamento/internal/metrics"
	"github.com/hitoshi/fechamento/internal/model"
	"github.com/hitoshi/fechamento/internal/repository"
)

// DefaultUTCOffsetHours は当月判定に使うデフォルトのUTCオフセット（UTC-3）。
const DefaultUTCOffsetHours = -3

// Initializer は起動時初期化を実行する。
type Initializer struct {
	schema     repository.SchemaRepository
	selections repository.SelectionRepository
	closings   repository.ClosingRepository
	metrics    metrics.MetricsCollector
	logger     *slog.Logger
	location   *time.Location
	now        func() time.Time
}

// NewInitializer は新しいInitializerを生成する。
// utcOffsetHoursは当月の判定に使う固定オフセット。
func NewInitializer(
	schema repository.SchemaRepository,
	selections repository.SelectionRepository,
	closings repository.ClosingRepository,
	mc metrics.MetricsCollector,
	logger *slog.Logger,
	utcOffsetHours int,
) *Initializer {
	if mc == nil {
		mc = metrics.NopCollector{}
	}
	return &Initializer{
		schema:     schema,
		selections: selections,
		closings:   closings,
		metrics:    mc,
		logger:     logger,
		location:   FixedZone(utcOffsetHours),
		now:        time.Now,
	}
}

// FixedZone はUTCからのオフセット（時間）の固定タイムゾーンを返す。
func FixedZone(utcOffsetHours int) *time.Location {
	return time.FixedZone(fmt.Sprintf("UTC%+d", utcOffsetHours), utcOffsetHours*60*60)
}

// Run は初期化を実行する。途中で失敗した場合はエラーを返し、呼び出し側で起動を中止する。
func (i *Initializer) Run(ctx context.Context) error {
	err := i.run(ctx)
	i.metrics.RecordBootstrap(err == nil)
	if err != nil {
		i.logger.Error("初期化に失敗しました", slog.String("error", err.Error()))
		return err
	}
	return nil
}

func (i *Initializer) run(ctx context.Context) error {
	for _, table := range database.CoreTables() {
		if err := i.ensureTable(ctx, table); err != nil {
			return err
		}
	}

	today := i.now().In(i.location)
	year, month := today.Year(), int(today.Month())

	if err := i.seedSelection(ctx, year, month); err != nil {
		return err
	}
	if err := i.seedClosing(ctx, year, month); err != nil {
		return err
	}

	i.logger.Info("初期化が完了しました",
		slog.Int("year", year),
		slog.Int("month", month),
	)
	return nil
}

// ensureTable はテーブルが存在しなければ作成する。
func (i *Initializer) ensureTable(ctx context.Context, table database.CoreTable) error {
	exists, err := i.schema.TableExists(ctx, table.Name)
	if err != nil {
		return fmt.Errorf("テーブル %s の確認に失敗しました: %w", table.Name, err)
	}
	if exists {
		i.logger.Info("テーブルは既に存在します", slog.String("table", table.Name))
		return nil
	}

	if err := i.schema.CreateTable(ctx, table.DDL); err != nil {
		return fmt.Errorf("テーブル %s の作成に失敗しました: %w", table.Name, err)
	}
	i.metrics.RecordTableCreated(table.Name)
	i.logger.Info("テーブルを作成しました", slog.String("table", table.Name))
	return nil
}

// seedSelection はselecionadoが空の場合に当月を登録する。
func (i *Initializer) seedSelection(ctx context.Context, year, month int) error {
	count, err := i.selections.Count(ctx)
	if err != nil {
		return fmt.Errorf("選択年月の件数確認に失敗しました: %w", err)
	}
	if count > 0 {
		return nil
	}

	err = i.selections.Create(ctx, &model.Selection{Year: year, Month: month})
	if err != nil && !errors.Is(err, repository.ErrDuplicate) {
		return fmt.Errorf("選択年月の初期登録に失敗しました: %w", err)
	}
	i.logger.Info("選択年月を初期登録しました",
		slog.Int("year", year),
		slog.Int("month", month),
	)
	return nil
}

// seedClosing は当月の月次締めがなければ暦日数分の0で初期化して登録する。
func (i *Initializer) seedClosing(ctx context.Context, year, month int) error {
	existing, err := i.closings.FindByYearMonth(ctx, year, month)
	if err != nil {
		return fmt.Errorf("当月の月次締めの確認に失敗しました: %w", err)
	}
	if existing != nil {
		return nil
	}

	values, err := closing.NewDailyValues(model.DaysInMonth(year, month), nil)
	if err != nil {
		return fmt.Errorf("日次値の初期化に失敗しました: %w", err)
	}

	c := &model.MonthlyClosing{
		Year:        year,
		Month:       month,
		DailyValues: values,
		SumValues:   closing.SumValues(values),
	}
	err = i.closings.Create(ctx, c)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("当月の月次締めの初期登録に失敗しました: %w", err)
	}

	i.logger.Info("当月の月次締めを初期登録しました",
		slog.Int64("closing_id", c.ID),
		slog.Int("year", year),
		slog.Int("month", month),
		slog.Int("days", len(values)),
	)
	return nil
}
