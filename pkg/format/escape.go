package format

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/atlassian/megatron"
)

const maxFractionDigits = 6

var regSeparators = regexp.MustCompile(`[@$,.:|#;]+`)

// Escape replaces every run of characters used as separators by the supported wire formats
// (@ $ , . : | # ;) with a single underscore.
func Escape(s string) string {
	return regSeparators.ReplaceAllLiteralString(s, "_")
}

// FormatValue renders integers in decimal, floats without grouping and with at most six fraction
// digits (NaN as "NaN"), and anything else in its natural string form.
func FormatValue(v interface{}) string {
	switch n := v.(type) {
	case megatron.Number:
		if n.IsIntegral() {
			return strconv.FormatInt(n.Int64(), 10)
		}
		return formatFloat(n.Float64())
	case float64:
		return formatFloat(n)
	case float32:
		return formatFloat(float64(n))
	case string:
		return n
	}
	return fmt.Sprint(v)
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "+Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	}
	s := strconv.FormatFloat(f, 'f', maxFractionDigits, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
