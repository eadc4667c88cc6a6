package canon

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"
)

const hexDigits = "0123456789abcdef"

// writeString writes s as a JSON string, escaping everything outside
// printable ASCII. Invalid UTF-8 bytes encode as U+FFFD.
func writeString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size
		switch {
		case r == '"':
			buf.WriteString(`\"`)
		case r == '\\':
			buf.WriteString(`\\`)
		case r == '\n':
			buf.WriteString(`\n`)
		case r == '\r':
			buf.WriteString(`\r`)
		case r == '\t':
			buf.WriteString(`\t`)
		case r == '\b':
			buf.WriteString(`\b`)
		case r == '\f':
			buf.WriteString(`\f`)
		case r >= 0x20 && r <= 0x7e:
			buf.WriteByte(byte(r))
		case r > 0xffff:
			r -= 0x10000
			writeUnit(buf, 0xd800+(r>>10))
			writeUnit(buf, 0xdc00+(r&0x3ff))
		default:
			writeUnit(buf, r)
		}
	}
	buf.WriteByte('"')
}

func writeUnit(buf *bytes.Buffer, u rune) {
	buf.WriteString(`\u`)
	buf.WriteByte(hexDigits[(u>>12)&0xf])
	buf.WriteByte(hexDigits[(u>>8)&0xf])
	buf.WriteByte(hexDigits[(u>>4)&0xf])
	buf.WriteByte(hexDigits[u&0xf])
}

func formatInt(n int64) string {
	return strconv.FormatInt(n, 10)
}

// formatNumber canonicalizes a JSON number literal. Literals without a
// fraction or exponent are integers of any size; the rest are float64.
func formatNumber(n json.Number) (string, error) {
	s := string(n)
	if !strings.ContainsAny(s, ".eE") {
		i, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return "", fmt.Errorf("canon: invalid integer %q", s)
		}
		return i.String(), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return "", fmt.Errorf("canon: invalid number %q: %w", s, err)
	}
	return formatFloat(f)
}

// formatFloat renders f with shortest round-trip digits. Decimal exponents
// in [-4, 16) print positionally with at least one fractional digit;
// others print as d[.ddd]e±XX. Negative zero keeps its sign.
func formatFloat(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("canon: %v has no JSON encoding", f)
	}
	if f == 0 {
		if math.Signbit(f) {
			return "-0.0", nil
		}
		return "0.0", nil
	}

	sign := ""
	if f < 0 {
		sign = "-"
		f = -f
	}

	// "d.ddde±XX" -> digits "dddd", exp XX
	e := strconv.FormatFloat(f, 'e', -1, 64)
	mant, expStr, _ := strings.Cut(e, "e")
	digits := strings.Replace(mant, ".", "", 1)
	exp, err := strconv.Atoi(expStr)
	if err != nil {
		return "", fmt.Errorf("canon: format %v: %w", f, err)
	}

	// Position of the decimal point relative to the first digit.
	point := exp + 1
	var b strings.Builder
	b.WriteString(sign)

	switch {
	case point <= -4 || point > 16:
		b.WriteByte(digits[0])
		if len(digits) > 1 {
			b.WriteByte('.')
			b.WriteString(digits[1:])
		}
		b.WriteByte('e')
		if exp < 0 {
			b.WriteByte('-')
			exp = -exp
		} else {
			b.WriteByte('+')
		}
		if exp < 10 {
			b.WriteByte('0')
		}
		b.WriteString(strconv.Itoa(exp))
	case point <= 0:
		b.WriteString("0.")
		b.WriteString(strings.Repeat("0", -point))
		b.WriteString(digits)
	case point >= len(digits):
		b.WriteString(digits)
		b.WriteString(strings.Repeat("0", point-len(digits)))
		b.WriteString(".0")
	default:
		b.WriteString(digits[:point])
		b.WriteByte('.')
		b.WriteString(digits[point:])
	}
	return b.String(), nil
}
