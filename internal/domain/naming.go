package domain

import (
	"fmt"
	"strings"
	"time"
)

// PhotoCodePlaceholder stands in for an empty coffret code in photo names.
const PhotoCodePlaceholder = "COFFRET"

// PhotoName builds {code}_{YYYY-MM-DD}_{HHhMMmSSs}_{index}.jpg, index being
// 1-based. at should already be in the operator's time zone.
func PhotoName(coffretCode string, at time.Time, index int) string {
	code := strings.TrimSpace(coffretCode)
	if code == "" {
		code = PhotoCodePlaceholder
	}
	return fmt.Sprintf("%s_%s_%02dh%02dm%02ds_%d.jpg",
		code, at.Format("2006-01-02"), at.Hour(), at.Minute(), at.Second(), index)
}
