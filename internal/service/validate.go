package service

import (
	"strings"

	"github.com/google/uuid"

	appErr "github.com/xxxsen/docqa/internal/pkg/errors"
)

// ParseUserID accepts any UUID spelling and returns its canonical lower
// case hyphenated form.
func ParseUserID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", appErr.NewValidationError("user_id", "is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", appErr.NewValidationError("user_id", "must be a valid UUID")
	}
	return id.String(), nil
}

func requireField(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", appErr.NewValidationError(field, "is required")
	}
	return value, nil
}
