package enums

import (
	"fmt"
	"slices"
	"strings"
)

func oneOf[T ~string](v T, valid []T) bool {
	return slices.Contains(valid, v)
}

// parse matches raw against valid. Lenient matching ignores case and
// surrounding space, which suits values typed into config or a CLI.
func parse[T ~string](kind, raw string, valid []T, lenient bool) (T, error) {
	candidate := raw
	if lenient {
		candidate = strings.ToLower(strings.TrimSpace(raw))
	}
	if v := T(candidate); oneOf(v, valid) {
		return v, nil
	}
	return "", fmt.Errorf("invalid %s %q", kind, raw)
}
