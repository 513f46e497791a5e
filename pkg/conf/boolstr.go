package conf

import (
	"fmt"
	"strings"

	"github.com/aretw0/shastarun/pkg/domain"
)

// ParseBool accepts the case-insensitive spellings t/true/1/y/yes and
// f/false/0/n/no. Anything else is an argument error.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "t", "true", "1", "y", "yes":
		return true, nil
	case "f", "false", "0", "n", "no":
		return false, nil
	}
	return false, fmt.Errorf("%w: %s", domain.ErrInvalidBool, s)
}

// FormatBool renders a bool the way the worker's configuration expects it.
func FormatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
