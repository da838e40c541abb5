package logging

import (
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// RedactedString creates a zap field with the value replaced by its length.
func RedactedString(key, val string) zap.Field {
	return zap.String(key, "[REDACTED:"+strconv.Itoa(len(val))+"]")
}

// Email creates a zap field that masks the local part of an email address,
// keeping the first character and the domain for correlation.
func Email(key, val string) zap.Field {
	at := strings.IndexByte(val, '@')
	if at <= 0 {
		return RedactedString(key, val)
	}
	return zap.String(key, val[:1]+"***"+val[at:])
}

// Phone creates a zap field that keeps only the last four digits.
func Phone(key, val string) zap.Field {
	var digits []byte
	for i := 0; i < len(val); i++ {
		if val[i] >= '0' && val[i] <= '9' {
			digits = append(digits, val[i])
		}
	}
	if len(digits) < 4 {
		return RedactedString(key, val)
	}
	return zap.String(key, "***"+string(digits[len(digits)-4:]))
}

// Name creates a zap field that keeps only initials.
func Name(key string, parts ...string) zap.Field {
	var b strings.Builder
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		for _, r := range p {
			b.WriteRune(r)
			break
		}
		b.WriteString(".")
	}
	return zap.String(key, b.String())
}
