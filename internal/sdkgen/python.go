package sdkgen

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const pyIndent = "    "

func indent(depth int) string {
	return strings.Repeat(pyIndent, depth)
}

// pyLiteral renders a default value as a Python literal. ok is false for
// values without a scalar literal form.
func pyLiteral(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "None", true
	case bool:
		if x {
			return "True", true
		}
		return "False", true
	case string:
		return strconv.Quote(x), true
	case float64:
		return formatNumber(x), true
	case float32:
		return formatNumber(float64(x)), true
	case int, int32, int64, uint, uint32, uint64:
		return fmt.Sprint(x), true
	}
	return "", false
}

// docValue renders a value for docstrings, without quoting.
func docValue(v any) string {
	switch x := v.(type) {
	case float64:
		return formatNumber(x)
	case float32:
		return formatNumber(float64(x))
	case bool:
		return strconv.FormatBool(x)
	}
	return fmt.Sprint(v)
}

func formatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// enumSet renders allowed values as a Python set literal.
func enumSet(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		if s, ok := v.(string); ok {
			parts[i] = strconv.Quote(s)
			continue
		}
		parts[i] = docValue(v)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// descriptionLines splits free text into docstring-safe lines.
func descriptionLines(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	text = strings.ReplaceAll(text, `\`, `\\`)
	text = strings.ReplaceAll(text, `"""`, `\"\"\"`)
	var out []string
	for _, line := range strings.Split(text, "\n") {
		out = append(out, strings.TrimRight(line, " \t\r"))
	}
	return out
}

func joinSentences(a, b string) string {
	b = strings.TrimSpace(b)
	if b == "" {
		return a
	}
	return a + " " + b
}
