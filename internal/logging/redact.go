package logging

import (
	"strconv"

	"go.uber.org/zap"
)

// RedactedString creates a Zap field with redacted value and length.
func RedactedString(key, val string) zap.Field {
	if val == "" {
		return zap.String(key, "<unset>")
	}
	return zap.String(key, "[REDACTED:"+strconv.Itoa(len(val))+"]")
}
