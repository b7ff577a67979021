package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
)

// ${NAME}, ${NAME:-fallback} or ${NAME:?message}.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?:(:[-?])([^}]*))?\}`)

// ExpandEnv substitutes environment references in a config document.
//
// ${NAME} expands to the value of NAME, or "" when unset.
// ${NAME:-fallback} uses fallback when NAME is unset or empty.
// ${NAME:?message} fails with message when NAME is unset or empty.
// Every missing required variable is reported, not just the first.
func ExpandEnv(input string) (string, error) {
	var missing []error
	out := envRef.ReplaceAllStringFunc(input, func(ref string) string {
		m := envRef.FindStringSubmatch(ref)
		name, op, arg := m[1], m[2], m[3]
		if v := os.Getenv(name); v != "" {
			return v
		}
		switch op {
		case ":-":
			return arg
		case ":?":
			if arg == "" {
				arg = "required but not set"
			}
			missing = append(missing, fmt.Errorf("${%s}: %s", name, arg))
		}
		return ""
	})
	return out, errors.Join(missing...)
}
