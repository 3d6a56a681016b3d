// Package closing は月次締めレコードのドメインロジックを提供する。
// 日次値のマージと合計の再計算はこのパッケージに集約する。
package closing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/fechamento/internal/model"
	"github.com/hitoshi/fechamento/internal/repository"
	"github.com/shopspring/decimal"
)

// CreateInput は月次締め作成の入力。
type CreateInput struct {
	Year       int
	Month      int
	DaysWorked int
	MaxGoal    decimal.Decimal
	MinGoal    decimal.Decimal
	DayValues  []model.DailyValue
}

// Service は月次締めのサービス層。
type Service struct {
	repo repository.ClosingRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.ClosingRepository) *Service {
	return &Service{repo: repo}
}

// ListClosings は全レコードを返す。
// soma_valoresは読み出し時に日次値から再計算するため、保存値と乖離していても常に正しい合計を返す。
func (s *Service) ListClosings(ctx context.Context) ([]*model.MonthlyClosing, error) {
	closings, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("月次締めの一覧取得に失敗しました: %w", err)
	}

	for _, c := range closings {
		sum := SumValues(c.DailyValues)
		if !sum.Equal(c.SumValues) {
			slog.Debug("保存済みの合計が日次値と一致しません",
				slog.Int64("closing_id", c.ID),
				slog.String("stored", c.SumValues.String()),
				slog.String("computed", sum.String()),
			)
		}
		c.SumValues = sum
	}
	return closings, nil
}

// ValidateCreate は作成入力を検証し、正規化した日次値配列を返す。
// 複数件をまとめて作成する呼び出し側は、書き込み前に全件をこの関数で検証する。
func ValidateCreate(in CreateInput) ([]model.DailyValue, error) {
	if err := validateYearMonth(in.Year, in.Month); err != nil {
		return nil, err
	}

	days := model.DaysInMonth(in.Year, in.Month)
	if in.DaysWorked < 0 || in.DaysWorked > days {
		return nil, model.NewValidationError(fmt.Sprintf("Dias trabalhados deve estar entre 0 e %d", days))
	}
	if err := validateGoals(&in.MaxGoal, &in.MinGoal); err != nil {
		return nil, err
	}
	for _, v := range in.DayValues {
		if !model.AmountInRange(v.Value) {
			return nil, amountOutOfRangeError()
		}
	}

	values, err := NewDailyValues(days, in.DayValues)
	if err != nil {
		return nil, model.NewValidationError(fmt.Sprintf("Valores diários inválidos: %v", err))
	}
	return values, nil
}

// CreateClosing は月次締めレコードを作成する。
// 日次値配列は暦日数で生成し、合計は同期的に計算して保存する。
func (s *Service) CreateClosing(ctx context.Context, in CreateInput) (*model.MonthlyClosing, error) {
	values, err := ValidateCreate(in)
	if err != nil {
		return nil, err
	}

	c := &model.MonthlyClosing{
		Year:        in.Year,
		Month:       in.Month,
		DaysWorked:  in.DaysWorked,
		MaxGoal:     in.MaxGoal,
		MinGoal:     in.MinGoal,
		DailyValues: values,
		SumValues:   SumValues(values),
	}

	if err := s.repo.Create(ctx, c); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewClosingExistsError(in.Year, in.Month)
		}
		return nil, fmt.Errorf("月次締めの作成に失敗しました: %w", err)
	}

	slog.Info("月次締めを作成しました",
		slog.Int64("closing_id", c.ID),
		slog.Int("year", c.Year),
		slog.Int("month", c.Month),
	)
	return c, nil
}

// SetDayValue は指定日の値を更新し、合計を再計算して保存する。
// dayはレコードの年月の暦日数の範囲内である必要がある。
func (s *Service) SetDayValue(ctx context.Context, id int64, day int, value decimal.Decimal) error {
	if !model.AmountInRange(value) {
		return amountOutOfRangeError()
	}

	c, err := s.findClosing(ctx, id)
	if err != nil {
		return err
	}

	if days := c.DaysInMonth(); day < 1 || day > days {
		return model.NewValidationError(fmt.Sprintf("Dia deve estar entre 1 e %d", days))
	}

	values := MergeDayValue(c.DailyValues, day, value)
	if err := s.repo.UpdateDailyValues(ctx, id, values, SumValues(values)); err != nil {
		return s.translateUpdateError(id, err, "日次値の更新に失敗しました")
	}
	return nil
}

// UpdateGoals は最大・最小目標を更新する。nilの目標は変更しない。
func (s *Service) UpdateGoals(ctx context.Context, id int64, maxGoal, minGoal *decimal.Decimal) error {
	if maxGoal == nil && minGoal == nil {
		return model.NewValidationError("Informe meta_maxima e/ou meta_minima")
	}
	if err := validateGoals(maxGoal, minGoal); err != nil {
		return err
	}

	if err := s.repo.UpdateGoals(ctx, id, maxGoal, minGoal); err != nil {
		return s.translateUpdateError(id, err, "目標の更新に失敗しました")
	}
	return nil
}

// UpdateDaysWorked は稼働日数を更新する。値はレコードの月の暦日数以下である必要がある。
func (s *Service) UpdateDaysWorked(ctx context.Context, id int64, daysWorked int) error {
	c, err := s.findClosing(ctx, id)
	if err != nil {
		return err
	}

	if days := c.DaysInMonth(); daysWorked < 0 || daysWorked > days {
		return model.NewValidationError(fmt.Sprintf("Dias trabalhados deve estar entre 0 e %d", days))
	}

	if err := s.repo.UpdateDaysWorked(ctx, id, daysWorked); err != nil {
		return s.translateUpdateError(id, err, "稼働日数の更新に失敗しました")
	}
	return nil
}

// findClosing はレコードを取得し、存在しない場合はNotFoundエラーを返す。
func (s *Service) findClosing(ctx context.Context, id int64) (*model.MonthlyClosing, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("月次締めの取得に失敗しました: %w", err)
	}
	if c == nil {
		return nil, model.NewClosingNotFoundError(id)
	}
	return c, nil
}

// translateUpdateError はリポジトリの更新エラーをAPIErrorに変換する。
func (s *Service) translateUpdateError(id int64, err error, msg string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return model.NewClosingNotFoundError(id)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// validateYearMonth は年と月の範囲を検証する。
func validateYearMonth(year, month int) error {
	if year < model.MinYear || year > model.MaxYear {
		return model.NewValidationError(fmt.Sprintf("Ano inválido: %d", year))
	}
	if month < 1 || month > 12 {
		return model.NewValidationError(fmt.Sprintf("Mês inválido: %d", month))
	}
	return nil
}

// validateGoals はnilでない目標が0以上かつ保存可能な範囲にあることを検証する。
func validateGoals(goals ...*decimal.Decimal) error {
	for _, g := range goals {
		if g == nil {
			continue
		}
		if g.IsNegative() {
			return model.NewValidationError("Metas não podem ser negativas")
		}
		if !model.AmountInRange(*g) {
			return amountOutOfRangeError()
		}
	}
	return nil
}

func amountOutOfRangeError() error {
	return model.NewValidationError(fmt.Sprintf("Valor deve ser menor que %s em módulo", model.MaxAmount.String()))
}
