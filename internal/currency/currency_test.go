package currency

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatGold(t *testing.T) {
	cases := []struct {
		gold float64
		want string
	}{
		{10.0525, "10g 5s 25c"},
		{0.0025, "25c"},
		{0, "0c"},
		{1, "1g"},
		{0.01, "1s"},
		{2.5, "2g 50s"},
		{0.0199, "1s 99c"},
		{1250.5, "1,250g 50s"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, FormatGold(tc.gold), "gold=%v", tc.gold)
	}
}

func TestParseGoldString(t *testing.T) {
	got, err := ParseGoldString("10g 25c")
	require.NoError(t, err)
	require.InDelta(t, 10.0025, got, 1e-9)

	got, err = ParseGoldString("0c")
	require.NoError(t, err)
	require.Zero(t, got)

	_, err = ParseGoldString("10x")
	require.Error(t, err)

	_, err = ParseGoldString("g")
	require.Error(t, err)
}

func TestRoundtrip(t *testing.T) {
	// Roundtrip holds at 4-decimal (copper) precision.
	for _, g := range []float64{0, 0.0001, 0.0099, 0.01, 1.2345, 10.0525, 999.9999, 12500.25} {
		parsed, err := ParseGoldString(FormatGold(g))
		require.NoError(t, err)
		require.Equal(t, GoldToCopper(g), GoldToCopper(parsed), "gold=%v", g)
	}
}

func TestSplitCopper(t *testing.T) {
	g, s, c := SplitCopper(100525)
	require.EqualValues(t, 10, g)
	require.EqualValues(t, 5, s)
	require.EqualValues(t, 25, c)

	g, s, c = SplitCopper(-5)
	require.Zero(t, g)
	require.Zero(t, s)
	require.Zero(t, c)
}
