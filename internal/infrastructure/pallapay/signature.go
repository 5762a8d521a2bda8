package pallapay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Sign returns the lowercase hex HMAC-SHA256 of message under secret.
func Sign(secret, message string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// RequestSignature signs method+path+timestamp with no delimiters, as sent in X-Palla-Sign.
func RequestSignature(secret, method, path string, timestamp int64) string {
	return Sign(secret, method+path+strconv.FormatInt(timestamp, 10))
}

// CanonicalString sorts data by key and concatenates the values without a
// delimiter. Values are rendered the way the processor renders them when it
// computes approval_hash: integers verbatim, floats with 14 significant digits,
// true as "1", false and null as "", and nested values as "Array".
func CanonicalString(data map[string]any) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(ScalarString(data[k]))
	}
	return b.String()
}

// CallbackSignature is the approval_hash the processor attaches to a callback carrying data.
func CallbackSignature(secret string, data map[string]any) string {
	return Sign(secret, CanonicalString(data))
}

// VerifyCallback reports whether claimed is the approval_hash of data. The
// comparison runs in constant time.
func VerifyCallback(secret string, data map[string]any, claimed string) bool {
	expected := CallbackSignature(secret, data)
	return hmac.Equal([]byte(expected), []byte(claimed))
}

// ScalarString renders a decoded JSON value as a string.
func ScalarString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		if val {
			return "1"
		}
		return ""
	case json.Number:
		s := val.String()
		if !strings.ContainsAny(s, ".eE") {
			if _, err := strconv.ParseInt(s, 10, 64); err == nil {
				return s
			}
		}
		f, err := val.Float64()
		if err != nil {
			return s
		}
		return formatFloat(f)
	case float64:
		return formatFloat(val)
	case float32:
		return formatFloat(float64(val))
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case map[string]any, []any:
		return "Array"
	default:
		return fmt.Sprint(val)
	}
}

// formatFloat renders f with 14 significant digits. Exponent form keeps at
// least one fractional mantissa digit and an unpadded exponent, so 0.00001
// becomes 1.0E-5 rather than 1E-05.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'G', 14, 64)
	mantissa, exp, ok := strings.Cut(s, "E")
	if !ok {
		return s
	}
	if !strings.Contains(mantissa, ".") {
		mantissa += ".0"
	}
	sign, digits := exp[:1], strings.TrimLeft(exp[1:], "0")
	if digits == "" {
		digits = "0"
	}
	return mantissa + "E" + sign + digits
}
