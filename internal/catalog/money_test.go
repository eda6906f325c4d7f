package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseMoney(t *testing.T) {
	cases := []struct {
		raw     string
		want    Money
		wantErr bool
	}{
		{raw: "35000", want: 35000},
		{raw: " 1,250,000 ", want: 1250000},
		{raw: "100.00", want: 100},
		{raw: "0", want: 0},
		{raw: "12.50", wantErr: true},
		{raw: "", wantErr: true},
		{raw: "abc", wantErr: true},
		{raw: "9223372036854775807", want: Money(9223372036854775807)},
		{raw: "9223372036854775808", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseMoney(tc.raw)
		if tc.wantErr {
			require.Error(t, err, tc.raw)
			continue
		}
		require.NoError(t, err, tc.raw)
		require.Equal(t, tc.want, got, tc.raw)
	}
}

func TestMoneyFormatter(t *testing.T) {
	f, err := NewMoneyFormatter("USD", "en")
	require.NoError(t, err)
	require.Equal(t, "USD", f.Currency())
	require.Equal(t, "123.45", f.Major(12345).StringFixed(2))
	require.Contains(t, f.Format(12345), "123.45")

	_, err = NewMoneyFormatter("XYZW", "en")
	require.Error(t, err)
	_, err = NewMoneyFormatter("IDR", "!!")
	require.Error(t, err)
}

func TestMoneyDecimal(t *testing.T) {
	require.Equal(t, "70000", Money(70000).Decimal().String())
}
