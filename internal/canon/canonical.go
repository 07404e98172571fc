package canon

import (
	"fmt"
	"math"
	"strconv"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Marshal produces RFC 8785 canonical JSON. It is the only
// serialization used for content hashes.
//
// Differences from encoding/json:
//   - object keys sorted by UTF-16 code units
//   - no HTML escaping, U+2028/U+2029 emitted literally
//   - strings NFC normalized
//   - numbers in ECMAScript shortest form; NaN and Inf rejected
func Marshal(v Value) ([]byte, error) {
	return appendCanonical(nil, v)
}

func appendCanonical(buf []byte, v Value) ([]byte, error) {
	switch val := v.(type) {
	case nil, Null:
		return append(buf, "null"...), nil
	case String:
		return appendCanonicalString(buf, string(val))
	case Int:
		return strconv.AppendInt(buf, int64(val), 10), nil
	case Float:
		s, err := formatFloat(float64(val))
		if err != nil {
			return nil, err
		}
		return append(buf, s...), nil
	case Bool:
		return strconv.AppendBool(buf, bool(val)), nil
	case Array:
		buf = append(buf, '[')
		for i, elem := range val {
			if i > 0 {
				buf = append(buf, ',')
			}
			var err error
			buf, err = appendCanonical(buf, elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		return append(buf, ']'), nil
	case Object:
		buf = append(buf, '{')
		for i, k := range val.SortedKeys() {
			if i > 0 {
				buf = append(buf, ',')
			}
			var err error
			buf, err = appendCanonicalString(buf, k)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			buf = append(buf, ':')
			buf, err = appendCanonical(buf, val[k])
			if err != nil {
				return nil, fmt.Errorf("value for key %q: %w", k, err)
			}
		}
		return append(buf, '}'), nil
	default:
		return nil, fmt.Errorf("unsupported value type: %T", v)
	}
}

const hexDigits = "0123456789abcdef"

// appendCanonicalString escapes only the quote, the backslash and control
// characters U+0000-U+001F.
func appendCanonicalString(buf []byte, s string) ([]byte, error) {
	if !utf8.ValidString(s) {
		return nil, fmt.Errorf("string is not valid UTF-8")
	}
	s = norm.NFC.String(s)

	buf = append(buf, '"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			buf = append(buf, '\\', '"')
		case '\\':
			buf = append(buf, '\\', '\\')
		case '\b':
			buf = append(buf, '\\', 'b')
		case '\f':
			buf = append(buf, '\\', 'f')
		case '\n':
			buf = append(buf, '\\', 'n')
		case '\r':
			buf = append(buf, '\\', 'r')
		case '\t':
			buf = append(buf, '\\', 't')
		default:
			if c < 0x20 {
				buf = append(buf, '\\', 'u', '0', '0', hexDigits[c>>4], hexDigits[c&0xF])
			} else {
				buf = append(buf, c)
			}
		}
	}
	return append(buf, '"'), nil
}

// formatFloat renders f the way ECMAScript Number.prototype.toString does.
func formatFloat(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("non-finite number %v is not representable", f)
	}
	if f == 0 {
		return "0", nil
	}
	format := byte('f')
	if abs := math.Abs(f); abs < 1e-6 || abs >= 1e21 {
		format = 'e'
	}
	s := strconv.FormatFloat(f, format, -1, 64)
	if format == 'e' {
		// e-07 -> e-7
		n := len(s)
		if n >= 4 && s[n-4] == 'e' && s[n-3] == '-' && s[n-2] == '0' {
			s = s[:n-2] + s[n-1:]
		}
	}
	return s, nil
}
