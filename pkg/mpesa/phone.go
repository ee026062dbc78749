package mpesa

import "strings"

// NormalizePhone coerces a dialable input into the 254XXXXXXXXX form the
// gateway expects: non-digits are stripped, a leading 0 becomes the 254
// country code, and a "+254..." input only loses the plus. Deterministic
// and total - a malformed number passes through unchanged and is left for
// the gateway to reject.
func NormalizePhone(raw string) string {
	trimmed := strings.TrimSpace(raw)
	hadPlus := strings.HasPrefix(trimmed, "+")
	var b strings.Builder
	for _, r := range trimmed {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if hadPlus {
		// country code assumed already present
		return digits
	}
	if strings.HasPrefix(digits, "0") {
		return "254" + digits[1:]
	}
	return digits
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
