// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// Messageはそのままクライアントに返すため、利用者向けの文言（ポルトガル語）とする。
type APIError struct {
	Code    string // エラーコード
	Message string // エラーメッセージ
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeClosingNotFound   = "CLOSING_NOT_FOUND"
	ErrCodeSelectionNotFound = "SELECTION_NOT_FOUND"
	ErrCodeUserNotFound      = "USER_NOT_FOUND"
	ErrCodeClosingExists     = "CLOSING_ALREADY_EXISTS"
	ErrCodeInvalidResetCode  = "INVALID_RESET_CODE"
	ErrCodeRateLimited       = "RATE_LIMITED"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

// NewValidationError は入力値の検証エラーを生成する。
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:    ErrCodeValidation,
		Message: message,
	}
}

// NewUnauthorizedError は認証エラーを生成する。
// ユーザーの存在有無を推測されないよう、原因にかかわらず同じ文言を返す。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:    ErrCodeUnauthorized,
		Message: "Credenciais inválidas ou token expirado",
	}
}

// NewClosingNotFoundError は月次締めレコード未検出エラーを生成する。
func NewClosingNotFoundError(id int64) *APIError {
	return &APIError{
		Code:    ErrCodeClosingNotFound,
		Message: fmt.Sprintf("Fechamento mensal não encontrado: %d", id),
	}
}

// NewSelectionNotFoundError は選択中の年月レコードが存在しない場合のエラーを生成する。
func NewSelectionNotFoundError() *APIError {
	return &APIError{
		Code:    ErrCodeSelectionNotFound,
		Message: "Nenhum mês selecionado encontrado",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:    ErrCodeUserNotFound,
		Message: "Usuário não encontrado",
	}
}

// NewClosingExistsError は同じ年月の月次締めが既に存在する場合のエラーを生成する。
func NewClosingExistsError(year, month int) *APIError {
	return &APIError{
		Code:    ErrCodeClosingExists,
		Message: fmt.Sprintf("Já existe um fechamento para %02d/%d", month, year),
	}
}

// NewInvalidResetCodeError はパスワードリセットコードが無効または期限切れの場合のエラーを生成する。
func NewInvalidResetCodeError() *APIError {
	return &APIError{
		Code:    ErrCodeInvalidResetCode,
		Message: "Código inválido ou expirado",
	}
}

// NewInternalError は内部エラーの利用者向け表現を生成する。
// 詳細はログのみに記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:    ErrCodeInternal,
		Message: "Erro interno do servidor",
	}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:    ErrCodeRateLimited,
		Message: "Muitas tentativas. Tente novamente mais tarde.",
	}
}
