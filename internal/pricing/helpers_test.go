package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, dec(want).Equal(got), "expected %s, got %s", want, got)
}

func at(value string) time.Time {
	ts, err := time.Parse("2006-01-02 15:04", value)
	if err != nil {
		panic(err)
	}
	return ts
}
