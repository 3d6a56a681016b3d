package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/fechamento/internal/closing"
	"github.com/hitoshi/fechamento/internal/model"
	"github.com/shopspring/decimal"
)

// ClosingServiceInterface は月次締めハンドラーが必要とするサービスインターフェース。
type ClosingServiceInterface interface {
	ListClosings(ctx context.Context) ([]*model.MonthlyClosing, error)
	CreateClosing(ctx context.Context, in closing.CreateInput) (*model.MonthlyClosing, error)
	SetDayValue(ctx context.Context, id int64, day int, value decimal.Decimal) error
	UpdateGoals(ctx context.Context, id int64, maxGoal, minGoal *decimal.Decimal) error
	UpdateDaysWorked(ctx context.Context, id int64, daysWorked int) error
}

// ClosingHandler は月次締めのHTTPハンドラー。
type ClosingHandler struct {
	service ClosingServiceInterface
}

// NewClosingHandler はClosingHandlerを生成する。
func NewClosingHandler(service ClosingServiceInterface) *ClosingHandler {
	return &ClosingHandler{service: service}
}

// dailyValueResponse は日次値のAPIレスポンス。
type dailyValueResponse struct {
	Day   int         `json:"day"`
	Value json.Number `json:"value"`
}

// closingResponse は月次締めのAPIレスポンス。
type closingResponse struct {
	ID          int64                `json:"id"`
	Year        int                  `json:"ano"`
	Month       int                  `json:"mes"`
	DaysWorked  int                  `json:"dias_trabalhados"`
	MaxGoal     json.Number          `json:"meta_maxima"`
	MinGoal     json.Number          `json:"meta_minima"`
	DailyValues []dailyValueResponse `json:"valores_diarios"`
	SumValues   json.Number          `json:"soma_valores"`
}

// createClosingMonth はPOST /api/fechamentosの1か月分の入力。
type createClosingMonth struct {
	DaysWorked int                `json:"days_worked"`
	MaxGoal    decimal.Decimal    `json:"max_goal"`
	MinGoal    decimal.Decimal    `json:"min_goal"`
	DayValues  []model.DailyValue `json:"day_values"`
}

// createClosingsRequest はPOST /api/fechamentosのボディ。
// {"years": {"2024": {"months": {"2": {...}}}}}
type createClosingsRequest struct {
	Years map[string]struct {
		Months map[string]createClosingMonth `json:"months"`
	} `json:"years"`
}

// setDayValueRequest はPUT /api/fechamentos/{id}/dia/{day}のボディ。
type setDayValueRequest struct {
	Value *decimal.Decimal `json:"value"`
}

// updateGoalsRequest はPUT /api/fechamentos/{id}/metaのボディ。
type updateGoalsRequest struct {
	MaxGoal *decimal.Decimal `json:"meta_maxima"`
	MinGoal *decimal.Decimal `json:"meta_minima"`
}

// updateDaysWorkedRequest はPUT /api/fechamentos/{id}/dias-trabalhadosのボディ。
type updateDaysWorkedRequest struct {
	DaysWorked *int `json:"dias_trabalhados"`
}

// ListClosings は全ての月次締めを返す。
// GET /api/fechamentos
func (h *ClosingHandler) ListClosings(w http.ResponseWriter, r *http.Request) {
	closings, err := h.service.ListClosings(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := make([]closingResponse, 0, len(closings))
	for _, c := range closings {
		resp = append(resp, toClosingResponse(c))
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateClosings はボディに含まれる年月ごとに月次締めを作成する。
// POST /api/fechamentos
// 書き込み前に全件を検証し、1件でも不正なら何も作成しない。
// 検証後は年月の昇順に作成し、重複などDB側の失敗ではそれ以前に作成したレコードを残したままエラーを返す。
func (h *ClosingHandler) CreateClosings(w http.ResponseWriter, r *http.Request) {
	var req createClosingsRequest
	if apiErr := decodeJSON(r, &req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	inputs, apiErr := req.toInputs()
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	for _, in := range inputs {
		if _, err := closing.ValidateCreate(in); err != nil {
			handleServiceError(w, r, err)
			return
		}
	}

	for _, in := range inputs {
		if _, err := h.service.CreateClosing(r.Context(), in); err != nil {
			handleServiceError(w, r, err)
			return
		}
	}

	writeMessage(w, http.StatusCreated, "Fechamento criado com sucesso")
}

// SetDayValue は指定日の値を更新する。
// PUT /api/fechamentos/{id}/dia/{day}
func (h *ClosingHandler) SetDayValue(w http.ResponseWriter, r *http.Request) {
	id, apiErr := closingIDParam(r)
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	day, err := strconv.Atoi(chi.URLParam(r, "day"))
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("Dia inválido"))
		return
	}

	var req setDayValueRequest
	if apiErr := decodeJSON(r, &req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}
	if req.Value == nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("Valor é obrigatório"))
		return
	}

	if err := h.service.SetDayValue(r.Context(), id, day, *req.Value); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeMessage(w, http.StatusOK, "Valor diário atualizado com sucesso")
}

// UpdateGoals は最大・最小目標を更新する。
// PUT /api/fechamentos/{id}/meta
func (h *ClosingHandler) UpdateGoals(w http.ResponseWriter, r *http.Request) {
	id, apiErr := closingIDParam(r)
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	var req updateGoalsRequest
	if apiErr := decodeJSON(r, &req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	if err := h.service.UpdateGoals(r.Context(), id, req.MaxGoal, req.MinGoal); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeMessage(w, http.StatusOK, "Metas atualizadas com sucesso")
}

// UpdateDaysWorked は稼働日数を更新する。
// PUT /api/fechamentos/{id}/dias-trabalhados
func (h *ClosingHandler) UpdateDaysWorked(w http.ResponseWriter, r *http.Request) {
	id, apiErr := closingIDParam(r)
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	var req updateDaysWorkedRequest
	if apiErr := decodeJSON(r, &req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}
	if req.DaysWorked == nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("Dias trabalhados é obrigatório"))
		return
	}

	if err := h.service.UpdateDaysWorked(r.Context(), id, *req.DaysWorked); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeMessage(w, http.StatusOK, "Dias trabalhados atualizados com sucesso")
}

// toInputs はネストしたボディを年月昇順のCreateInputに展開する。
func (req *createClosingsRequest) toInputs() ([]closing.CreateInput, *model.APIError) {
	var inputs []closing.CreateInput
	for yearKey, year := range req.Years {
		y, err := strconv.Atoi(yearKey)
		if err != nil {
			return nil, model.NewValidationError(fmt.Sprintf("Ano inválido: %s", yearKey))
		}
		for monthKey, m := range year.Months {
			mo, err := strconv.Atoi(monthKey)
			if err != nil {
				return nil, model.NewValidationError(fmt.Sprintf("Mês inválido: %s", monthKey))
			}
			inputs = append(inputs, closing.CreateInput{
				Year:       y,
				Month:      mo,
				DaysWorked: m.DaysWorked,
				MaxGoal:    m.MaxGoal,
				MinGoal:    m.MinGoal,
				DayValues:  m.DayValues,
			})
		}
	}

	if len(inputs) == 0 {
		return nil, model.NewValidationError("Nenhum fechamento informado")
	}

	sort.Slice(inputs, func(i, j int) bool {
		if inputs[i].Year != inputs[j].Year {
			return inputs[i].Year < inputs[j].Year
		}
		return inputs[i].Month < inputs[j].Month
	})
	return inputs, nil
}

// closingIDParam はURLパスの{id}を解析する。
func closingIDParam(r *http.Request) (int64, *model.APIError) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, model.NewValidationError("ID inválido")
	}
	return id, nil
}

// toClosingResponse はモデルをAPIレスポンスに変換する。
func toClosingResponse(c *model.MonthlyClosing) closingResponse {
	values := make([]dailyValueResponse, 0, len(c.DailyValues))
	for _, v := range c.DailyValues {
		values = append(values, dailyValueResponse{Day: v.Day, Value: decimalNumber(v.Value)})
	}
	return closingResponse{
		ID:          c.ID,
		Year:        c.Year,
		Month:       c.Month,
		DaysWorked:  c.DaysWorked,
		MaxGoal:     decimalNumber(c.MaxGoal),
		MinGoal:     decimalNumber(c.MinGoal),
		DailyValues: values,
		SumValues:   decimalNumber(c.SumValues),
	}
}

// decimalNumber はdecimalを精度を落とさずJSONの数値として出力する。
func decimalNumber(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}
