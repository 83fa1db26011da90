package labels

import (
	"errors"
	"strings"
)

// ResponseMarker precedes the model's answer in completion text
const ResponseMarker = "### Response:"

// ErrSectionNotFound is returned when completion text has no response marker.
// It means no labels are available, not that the completion failed.
var ErrSectionNotFound = errors.New("response section not found")

// LocateAnswer returns the trimmed text following the first ResponseMarker in raw.
func LocateAnswer(raw string) (string, error) {
	idx := strings.Index(raw, ResponseMarker)
	if idx < 0 {
		return "", ErrSectionNotFound
	}
	return strings.TrimSpace(raw[idx+len(ResponseMarker):]), nil
}
