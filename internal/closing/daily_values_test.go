package closing

import (
	"testing"

	"github.com/hitoshi/fechamento/internal/model"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestNewDailyValues_FillsMissingDaysWithZero(t *testing.T) {
	values, err := NewDailyValues(30, []model.DailyValue{
		{Day: 1, Value: dec("10")},
		{Day: 2, Value: dec("5")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(values) != 30 {
		t.Fatalf("len(values) = %d, want 30", len(values))
	}
	for i, dv := range values {
		if dv.Day != i+1 {
			t.Errorf("values[%d].Day = %d, want %d", i, dv.Day, i+1)
		}
	}
	if !values[0].Value.Equal(dec("10")) || !values[1].Value.Equal(dec("5")) {
		t.Errorf("provided values not applied: %v, %v", values[0].Value, values[1].Value)
	}
	if !values[2].Value.IsZero() {
		t.Errorf("values[2].Value = %s, want 0", values[2].Value)
	}
	if sum := SumValues(values); !sum.Equal(dec("15")) {
		t.Errorf("SumValues = %s, want 15", sum)
	}
}

func TestNewDailyValues_FirstDuplicateWins(t *testing.T) {
	values, err := NewDailyValues(28, []model.DailyValue{
		{Day: 3, Value: dec("1")},
		{Day: 3, Value: dec("99")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !values[2].Value.Equal(dec("1")) {
		t.Errorf("values[2].Value = %s, want 1", values[2].Value)
	}
}

func TestNewDailyValues_RejectsOutOfRangeDay(t *testing.T) {
	tests := []struct {
		name string
		day  int
	}{
		{"zero", 0},
		{"negative", -1},
		{"beyond month", 31},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDailyValues(30, []model.DailyValue{{Day: tt.day, Value: dec("1")}})
			if err == nil {
				t.Errorf("expected error for day %d", tt.day)
			}
		})
	}
}

func TestMergeDayValue_OverwritesPositionalEntry(t *testing.T) {
	values, _ := NewDailyValues(31, nil)

	merged := MergeDayValue(values, 15, dec("42.5"))

	if len(merged) != 31 {
		t.Fatalf("len(merged) = %d, want 31", len(merged))
	}
	if !merged[14].Value.Equal(dec("42.5")) {
		t.Errorf("merged[14].Value = %s, want 42.5", merged[14].Value)
	}
	for i, dv := range merged {
		if i != 14 && !dv.Value.IsZero() {
			t.Errorf("merged[%d].Value = %s, want unchanged 0", i, dv.Value)
		}
	}
	// 元の配列は変更されない
	if !values[14].Value.IsZero() {
		t.Error("input slice was mutated")
	}
}

func TestMergeDayValue_MatchesByDayWhenPositionDiffers(t *testing.T) {
	values := []model.DailyValue{
		{Day: 2, Value: dec("1")},
		{Day: 5, Value: dec("2")},
	}

	merged := MergeDayValue(values, 5, dec("7"))

	if len(merged) != 2 {
		t.Fatalf("len(merged) = %d, want 2", len(merged))
	}
	if !merged[1].Value.Equal(dec("7")) {
		t.Errorf("merged[1].Value = %s, want 7", merged[1].Value)
	}
}

func TestMergeDayValue_InsertsMissingDayInOrder(t *testing.T) {
	values := []model.DailyValue{
		{Day: 1, Value: dec("1")},
		{Day: 2, Value: dec("2")},
		{Day: 10, Value: dec("10")},
	}

	merged := MergeDayValue(values, 5, dec("5"))

	wantDays := []int{1, 2, 5, 10}
	if len(merged) != len(wantDays) {
		t.Fatalf("len(merged) = %d, want %d", len(merged), len(wantDays))
	}
	for i, day := range wantDays {
		if merged[i].Day != day {
			t.Errorf("merged[%d].Day = %d, want %d", i, merged[i].Day, day)
		}
	}

	appended := MergeDayValue(values, 31, dec("3"))
	if last := appended[len(appended)-1]; last.Day != 31 || !last.Value.Equal(dec("3")) {
		t.Errorf("last = %+v, want {31 3}", last)
	}
}

func TestSumValues(t *testing.T) {
	values := []model.DailyValue{
		{Day: 1, Value: dec("0.1")},
		{Day: 2, Value: dec("0.2")},
		{Day: 3, Value: dec("-0.3")},
	}
	if sum := SumValues(values); !sum.IsZero() {
		t.Errorf("SumValues = %s, want 0 (exact decimal arithmetic)", sum)
	}
	if sum := SumValues(nil); !sum.IsZero() {
		t.Errorf("SumValues(nil) = %s, want 0", sum)
	}
}
