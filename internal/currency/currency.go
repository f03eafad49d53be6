// Package currency handles the shard's money math. Everything internal is
// denominated in integer copper; gold is a display unit only.
// 1 gold = 100 silver = 10,000 copper.
package currency

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

const (
	CopperPerSilver = 100
	CopperPerGold   = 10000
)

// GoldToCopper converts a fractional gold amount to integer copper,
// truncating below the copper lattice.
func GoldToCopper(gold float64) int64 {
	return int64(math.Floor(gold * CopperPerGold))
}

// CopperToGold converts integer copper to fractional gold.
func CopperToGold(copper int64) float64 {
	return float64(copper) / CopperPerGold
}

// SplitCopper breaks a copper amount into gold/silver/copper display parts.
func SplitCopper(copper int64) (gold, silver, rem int64) {
	if copper < 0 {
		copper = 0
	}
	gold = copper / CopperPerGold
	silver = (copper % CopperPerGold) / CopperPerSilver
	rem = copper % CopperPerSilver
	return gold, silver, rem
}

// FormatCopper renders copper as the space-joined "Xg Ys Zc" display string.
// Zero parts are omitted; a zero total renders as "0c". Gold amounts are
// comma-grouped, so treasury-scale balances stay readable.
func FormatCopper(copper int64) string {
	g, s, c := SplitCopper(copper)

	var parts []string
	if g > 0 {
		parts = append(parts, humanize.Comma(g)+"g")
	}
	if s > 0 {
		parts = append(parts, fmt.Sprintf("%ds", s))
	}
	if c > 0 {
		parts = append(parts, fmt.Sprintf("%dc", c))
	}
	if len(parts) == 0 {
		return "0c"
	}
	return strings.Join(parts, " ")
}

// FormatGold renders a fractional gold amount as a display string.
func FormatGold(gold float64) string {
	return FormatCopper(GoldToCopper(gold))
}

// ParseGoldString parses a display string like "10g 5s 25c" back into
// fractional gold. Parts may appear in any combination; comma grouping is
// accepted; unknown suffixes are an error.
func ParseGoldString(s string) (float64, error) {
	var copper int64
	for _, part := range strings.Fields(strings.ReplaceAll(s, ",", "")) {
		if len(part) < 2 {
			return 0, fmt.Errorf("malformed currency part %q", part)
		}
		suffix := part[len(part)-1]
		n, err := strconv.ParseInt(part[:len(part)-1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("malformed currency part %q: %w", part, err)
		}
		if n < 0 {
			return 0, fmt.Errorf("negative currency part %q", part)
		}
		switch suffix {
		case 'g':
			copper += n * CopperPerGold
		case 's':
			copper += n * CopperPerSilver
		case 'c':
			copper += n
		default:
			return 0, fmt.Errorf("unknown currency suffix %q", string(suffix))
		}
	}
	return CopperToGold(copper), nil
}
