package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAddMonths(t *testing.T) {
	tests := []struct {
		name     string
		in       time.Time
		months   int
		expected time.Time
	}{
		{"simple", date(2024, time.January, 1), 3, date(2024, time.April, 1)},
		{"year rollover", date(2024, time.November, 15), 2, date(2025, time.January, 15)},
		{"clamp to feb", date(2024, time.January, 31), 1, date(2024, time.February, 29)},
		{"clamp to feb non leap", date(2023, time.January, 31), 1, date(2023, time.February, 28)},
		{"clamp to short month", date(2024, time.March, 31), 1, date(2024, time.April, 30)},
		{"no clamp needed", date(2024, time.February, 28), 1, date(2024, time.March, 28)},
		{"twelve months", date(2024, time.June, 10), 12, date(2025, time.June, 10)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AddMonths(tt.in, tt.months))
		})
	}
}

func TestEndOfMonth(t *testing.T) {
	assert.Equal(t, date(2024, time.February, 29), EndOfMonth(date(2024, time.February, 10), 0))
	assert.Equal(t, date(2024, time.December, 31), EndOfMonth(date(2024, time.November, 5), 1))
}

func TestDateOnly(t *testing.T) {
	in := time.Date(2024, time.May, 3, 17, 45, 12, 999, time.UTC)
	assert.Equal(t, date(2024, time.May, 3), DateOnly(in))
}
