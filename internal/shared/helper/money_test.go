package helper_test

import (
	"testing"

	"go-storefront/internal/shared/helper"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestClampPercent(t *testing.T) {
	cases := map[string]struct {
		in   decimal.Decimal
		want decimal.Decimal
	}{
		"negative":  {decimal.NewFromInt(-5), decimal.Zero},
		"in_range":  {decimal.NewFromFloat(12.5), decimal.NewFromFloat(12.5)},
		"above_100": {decimal.NewFromInt(150), decimal.NewFromInt(100)},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.True(t, tc.want.Equal(helper.ClampPercent(tc.in)))
		})
	}
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "33.33", helper.FormatMoney(decimal.NewFromInt(100).Div(decimal.NewFromInt(3))))
	assert.Equal(t, "0.10", helper.FormatMoney(decimal.RequireFromString("0.1")))
	assert.Equal(t, "0.00", helper.FormatMoney(helper.DecimalPtrValue(nil)))
}
