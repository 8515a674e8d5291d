package extract

import (
	"strconv"
	"strings"

	"go.uber.org/zap"
)

var numberNoise = strings.NewReplacer(
	"₹", "", "rs.", "", "rs", "", "inr", "", "$", "",
	"*", "", "_", "", ",", "", " ", "", "\u00a0", "",
	"(", "", ")", "",
)

// NormalizeNumber turns a captured figure such as "₹ 1,234.5", "**980**"
// or "(12.0)" into a float. Parentheses and a leading minus mean negative.
// When several dots appear only the last is the decimal point. Anything
// unparsable yields 0 and a logged warning.
func NormalizeNumber(raw string) float64 {
	s := strings.ToLower(strings.TrimSpace(raw))
	neg := strings.HasPrefix(s, "-") || (strings.Contains(s, "(") && strings.Contains(s, ")"))
	s = strings.TrimPrefix(numberNoise.Replace(s), "-")

	if parts := strings.Split(s, "."); len(parts) > 2 {
		s = strings.Join(parts[:len(parts)-1], "") + "." + parts[len(parts)-1]
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		zap.L().Warn("extract: unparsable number", zap.String("raw", raw))
		return 0
	}
	if neg {
		v = -v
	}
	return v
}
