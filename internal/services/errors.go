package services

import (
	"errors"
	"fmt"
	"strings"
)

var ErrNoFile = errors.New("no image file uploaded")

// ValidationError is a user input error on a single field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ValidateDiseaseName trims name and rejects it when empty.
func ValidateDiseaseName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", &ValidationError{Field: "disease", Message: "disease name is required"}
	}
	return name, nil
}

// ValidateIDs rejects an empty id list or one containing zero ids and
// returns the ids without duplicates.
func ValidateIDs(ids []uint) ([]uint, error) {
	if len(ids) == 0 {
		return nil, &ValidationError{Field: "ids", Message: "at least one id is required"}
	}

	seen := make(map[uint]struct{}, len(ids))
	unique := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			return nil, &ValidationError{Field: "ids", Message: "ids must be positive integers"}
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique, nil
}
