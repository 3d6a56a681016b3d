package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 月次締めと選択年月で扱える年の範囲。
const (
	MinYear = 1900
	MaxYear = 9999
)

// MaxAmount は目標値と日次値の絶対値の上限（この値は含まない）。
// 目標はNUMERIC(10,2)に保存され、31日分の日次値の合計もsoma_valoresのNUMERIC(12,2)に収まる。
var MaxAmount = decimal.New(1, 8)

// AmountInRange は金額が保存可能な範囲にあるかを返す。
func AmountInRange(d decimal.Decimal) bool {
	return d.Abs().LessThan(MaxAmount)
}

// Selection は画面で選択中の年月を保持するシングルトンレコード。
type Selection struct {
	ID    int64
	Year  int
	Month int
}

// DailyValue は月次締めの1日分の値。
// valores_diariosカラムにJSON配列として保存する。
type DailyValue struct {
	Day   int             `json:"day"`
	Value decimal.Decimal `json:"value"`
}

// MonthlyClosing は年月ごとの月次締めレコードを表す。
type MonthlyClosing struct {
	ID          int64
	Year        int
	Month       int
	DaysWorked  int
	MaxGoal     decimal.Decimal
	MinGoal     decimal.Decimal
	DailyValues []DailyValue
	SumValues   decimal.Decimal
}

// DaysInMonth は指定年月の暦日数を返す。
func DaysInMonth(year, month int) int {
	// 翌月0日 = 当月末日
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DaysInMonth はレコードの年月に対応する暦日数を返す。
func (c *MonthlyClosing) DaysInMonth() int {
	return DaysInMonth(c.Year, c.Month)
}
