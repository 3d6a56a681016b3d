package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/fechamento/internal/model"
)

// SelectionServiceInterface は選択年月ハンドラーが必要とするサービスインターフェース。
type SelectionServiceInterface interface {
	GetSelection(ctx context.Context) ([]*model.Selection, error)
	SetSelection(ctx context.Context, year, month int) error
}

// SelectionHandler は選択年月のHTTPハンドラー。
type SelectionHandler struct {
	service SelectionServiceInterface
}

// NewSelectionHandler はSelectionHandlerを生成する。
func NewSelectionHandler(service SelectionServiceInterface) *SelectionHandler {
	return &SelectionHandler{service: service}
}

// selectionResponse は選択年月のAPIレスポンス。
type selectionResponse struct {
	ID    int64 `json:"id"`
	Year  int   `json:"ano"`
	Month int   `json:"mes"`
}

// setSelectionRequest はPUT /api/selecionadoのボディ。
type setSelectionRequest struct {
	Year  *int `json:"ano"`
	Month *int `json:"mes"`
}

// GetSelection は選択年月を返す。
// GET /api/selecionado
func (h *SelectionHandler) GetSelection(w http.ResponseWriter, r *http.Request) {
	selections, err := h.service.GetSelection(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := make([]selectionResponse, 0, len(selections))
	for _, s := range selections {
		resp = append(resp, selectionResponse{ID: s.ID, Year: s.Year, Month: s.Month})
	}
	writeJSON(w, http.StatusOK, resp)
}

// SetSelection は選択年月を更新する。
// PUT /api/selecionado
func (h *SelectionHandler) SetSelection(w http.ResponseWriter, r *http.Request) {
	var req setSelectionRequest
	if apiErr := decodeJSON(r, &req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}
	if req.Year == nil || req.Month == nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("Ano e mês são obrigatórios"))
		return
	}

	if err := h.service.SetSelection(r.Context(), *req.Year, *req.Month); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeMessage(w, http.StatusOK, "Seleção atualizada com sucesso")
}
