// Package selection は選択中の年月（シングルトン）のドメインロジックを提供する。
package selection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/fechamento/internal/model"
	"github.com/hitoshi/fechamento/internal/repository"
)

// Service は選択中の年月のサービス層。
type Service struct {
	repo repository.SelectionRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.SelectionRepository) *Service {
	return &Service{repo: repo}
}

// GetSelection は全行を返す。運用上は1行のみ。
func (s *Service) GetSelection(ctx context.Context) ([]*model.Selection, error) {
	selections, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("選択中の年月の取得に失敗しました: %w", err)
	}
	if selections == nil {
		selections = []*model.Selection{}
	}
	return selections, nil
}

// SetSelection はシングルトン行の年月を更新する。
// 更新対象のIDは毎回テーブルから取得し直す。行が存在しない場合はNotFoundを返す。
func (s *Service) SetSelection(ctx context.Context, year, month int) error {
	if year == 0 || month == 0 {
		return model.NewValidationError("Ano e mês são obrigatórios")
	}
	if month < 1 || month > 12 {
		return model.NewValidationError(fmt.Sprintf("Mês inválido: %d", month))
	}
	if year < model.MinYear || year > model.MaxYear {
		return model.NewValidationError(fmt.Sprintf("Ano inválido: %d", year))
	}

	current, err := s.repo.FindFirst(ctx)
	if err != nil {
		return fmt.Errorf("選択中の年月の取得に失敗しました: %w", err)
	}
	if current == nil {
		return model.NewSelectionNotFoundError()
	}

	if err := s.repo.UpdateByID(ctx, current.ID, year, month); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewSelectionNotFoundError()
		}
		return fmt.Errorf("選択中の年月の更新に失敗しました: %w", err)
	}

	slog.Info("選択中の年月を更新しました",
		slog.Int64("selection_id", current.ID),
		slog.Int("year", year),
		slog.Int("month", month),
	)
	return nil
}
