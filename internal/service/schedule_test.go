package service

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	customError "github.com/segyhp/loan-ledger/pkg/errors"
)

func TestGenerateSchedule(t *testing.T) {
	start := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		amount   decimal.Decimal
		months   int
		expected []string
	}{
		{
			name:     "even split",
			amount:   decimal.NewFromInt(1200),
			months:   12,
			expected: []string{"100", "100", "100", "100", "100", "100", "100", "100", "100", "100", "100", "100"},
		},
		{
			name:     "last row absorbs the remainder",
			amount:   decimal.NewFromInt(100),
			months:   3,
			expected: []string{"33.33", "33.33", "33.34"},
		},
		{
			name:     "remainder can shrink the last row",
			amount:   decimal.NewFromInt(200),
			months:   3,
			expected: []string{"66.67", "66.67", "66.66"},
		},
		{
			name:     "single installment",
			amount:   decimal.RequireFromString("550.55"),
			months:   1,
			expected: []string{"550.55"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schedule, err := GenerateSchedule("LN00001", tt.amount, tt.months, start)
			require.NoError(t, err)
			require.Len(t, schedule, tt.months)

			total := decimal.Zero
			for i, row := range schedule {
				assert.True(t, row.DueAmount.Equal(decimal.RequireFromString(tt.expected[i])),
					"row %d: expected %s, got %s", i, tt.expected[i], row.DueAmount)
				assert.Equal(t, i+1, row.Seq)
				assert.True(t, row.PaidAmount.IsZero())
				assert.False(t, row.IsPaid)
				total = total.Add(row.DueAmount)
			}

			// Rows must reconcile to the loan amount exactly
			assert.True(t, total.Equal(tt.amount),
				"schedule sums to %s, want %s", total, tt.amount)
		})
	}
}

func TestGenerateSchedule_SumsExactlyAcrossAwkwardSplits(t *testing.T) {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	amounts := []string{"100.00", "999.99", "1000.01", "0.01", "12345.67", "7.00"}
	for _, a := range amounts {
		amount := decimal.RequireFromString(a)
		for months := 1; months <= 24; months++ {
			schedule, err := GenerateSchedule("LN00001", amount, months, start)
			require.NoError(t, err)

			total := decimal.Zero
			for _, row := range schedule {
				total = total.Add(row.DueAmount)
			}
			assert.True(t, total.Equal(amount),
				"amount %s over %d months sums to %s", amount, months, total)
		}
	}
}

func TestGenerateSchedule_DueDates(t *testing.T) {
	// Jan 31 start: due dates must clamp at month end, not spill into March
	start := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	schedule, err := GenerateSchedule("LN00001", decimal.NewFromInt(300), 3, start)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), schedule[0].DueDate)
	assert.Equal(t, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), schedule[1].DueDate)
	assert.Equal(t, time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC), schedule[2].DueDate)
}

func TestGenerateSchedule_InvalidInput(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := GenerateSchedule("LN00001", decimal.NewFromInt(100), 0, start)
	assert.True(t, errors.Is(err, customError.ErrInvalidTerm))

	_, err = GenerateSchedule("LN00001", decimal.NewFromInt(100), -3, start)
	assert.True(t, errors.Is(err, customError.ErrInvalidTerm))

	_, err = GenerateSchedule("LN00001", decimal.Zero, 12, start)
	assert.True(t, errors.Is(err, customError.ErrInvalidLoanAmount))

	_, err = GenerateSchedule("LN00001", decimal.NewFromInt(-50), 12, start)
	assert.True(t, errors.Is(err, customError.ErrInvalidLoanAmount))
}
