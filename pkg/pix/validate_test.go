package pix

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAmount(t *testing.T) {
	valid := []string{"0.00", "25.50", "1.01", "9999999999.99"}
	for _, s := range valid {
		assert.NoError(t, ValidateAmount(s), s)
	}
	invalid := []string{"10", "10.1", "-5.00", "10.00 ", " 10.00", "10.000", "1,000.00", "99999999999.00", ".50", "", "10.a0"}
	for _, s := range invalid {
		assert.ErrorIs(t, ValidateAmount(s), ErrInvalidAmount, s)
	}
}

func TestValidateTxid(t *testing.T) {
	assert.NoError(t, ValidateTxid(strings.Repeat("a", 26)))
	assert.NoError(t, ValidateTxid(strings.Repeat("Z9", 17)+"x"))
	assert.NoError(t, ValidateTxid("345b9f42df4d13a2585822a3247a65"))

	for _, s := range []string{
		strings.Repeat("a", 25),
		strings.Repeat("a", 36),
		strings.Repeat("a", 20) + "-" + strings.Repeat("b", 10),
		strings.Repeat("á", 30),
		"",
	} {
		assert.ErrorIs(t, ValidateTxid(s), ErrInvalidTxid, s)
	}
}

func TestValidateDateRange(t *testing.T) {
	start, end, err := ValidateDateRange("2025-07-16-00-00-00", "2025-07-17-00-00-00")
	require.NoError(t, err)
	assert.Equal(t, "2025-07-16T00:00:00Z", start)
	assert.Equal(t, "2025-07-17T00:00:00Z", end)

	parsed, err := time.Parse(time.RFC3339, start)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(time.Date(2025, 7, 16, 0, 0, 0, 0, time.UTC)))
}

func TestValidateDateRange_Invalid(t *testing.T) {
	cases := []struct{ start, end string }{
		{"2025-13-01-00-00-00", "2025-07-17-00-00-00"},
		{"2025-07-16-00-00-00", "2025-02-30-00-00-00"},
		{"2025-07-16 00:00:00", "2025-07-17-00-00-00"},
		{"2025-07-16-24-00-00", "2025-07-17-00-00-00"},
		{"2025-7-16-00-00-00", "2025-07-17-00-00-00"},
		{"", ""},
	}
	for _, tc := range cases {
		_, _, err := ValidateDateRange(tc.start, tc.end)
		assert.ErrorIs(t, err, ErrInvalidDateRange, "%s..%s", tc.start, tc.end)
	}
}

func TestAmountConversions(t *testing.T) {
	cents, err := AmountToCents("25.50")
	require.NoError(t, err)
	assert.Equal(t, int64(2550), cents)

	cents, err = AmountToCents("0.07")
	require.NoError(t, err)
	assert.Equal(t, int64(7), cents)

	_, err = AmountToCents("25.5")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	assert.Equal(t, "25.50", CentsToAmount(2550))
	assert.Equal(t, "25.50", FormatAmount(decimal.RequireFromString("25.5")))
	assert.Equal(t, "0.10", FormatAmount(decimal.RequireFromString("0.1")))
}
