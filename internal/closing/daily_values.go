package closing

import (
	"fmt"
	"slices"

	"github.com/hitoshi/fechamento/internal/model"
	"github.com/shopspring/decimal"
)

// NewDailyValues は暦日数分の日次値配列を生成する。
// providedに含まれる日はその値、含まれない日は0で埋める。
// 同じ日が複数回指定された場合は先に現れた値を採用する。
func NewDailyValues(days int, provided []model.DailyValue) ([]model.DailyValue, error) {
	byDay := make(map[int]decimal.Decimal, len(provided))
	for _, dv := range provided {
		if dv.Day < 1 || dv.Day > days {
			return nil, fmt.Errorf("dia %d fora do intervalo 1-%d", dv.Day, days)
		}
		if _, exists := byDay[dv.Day]; !exists {
			byDay[dv.Day] = dv.Value
		}
	}

	values := make([]model.DailyValue, days)
	for i := range values {
		day := i + 1
		values[i] = model.DailyValue{Day: day, Value: byDay[day]}
	}
	return values, nil
}

// MergeDayValue は指定日の値を上書きした新しい配列を返す。
//
// 位置day-1の要素がその日を指していれば上書きし、そうでなければdayが一致する要素を探す。
// どちらもなければ日付順の位置に{day, value}を挿入する。欠けた日を0で補完はしない。
// 入力のスライスは変更しない。
func MergeDayValue(values []model.DailyValue, day int, value decimal.Decimal) []model.DailyValue {
	merged := make([]model.DailyValue, len(values), len(values)+1)
	copy(merged, values)

	if idx := day - 1; idx >= 0 && idx < len(merged) && merged[idx].Day == day {
		merged[idx].Value = value
		return merged
	}

	for i := range merged {
		if merged[i].Day == day {
			merged[i].Value = value
			return merged
		}
	}

	pos := slices.IndexFunc(merged, func(dv model.DailyValue) bool { return dv.Day > day })
	if pos < 0 {
		pos = len(merged)
	}
	return slices.Insert(merged, pos, model.DailyValue{Day: day, Value: value})
}

// SumValues は全要素の値の合計を返す。
func SumValues(values []model.DailyValue) decimal.Decimal {
	sum := decimal.Zero
	for _, dv := range values {
		sum = sum.Add(dv.Value)
	}
	return sum
}
