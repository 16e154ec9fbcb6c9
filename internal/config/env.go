package config

import (
	"encoding/json"
	"os"
	"regexp"
	"strings"
)

var (
	envWithDefault = regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*):-(.*?)\}`)
	envBraced      = regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*)\}`)
)

// expandEnvVars replaces ${VAR} and ${VAR:-default} references in raw JSON.
// Environment values are escaped for a JSON string; defaults are already
// JSON text and are kept as written.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	s = envWithDefault.ReplaceAllStringFunc(s, func(match string) string {
		parts := envWithDefault.FindStringSubmatch(match)
		if val := os.Getenv(parts[1]); val != "" {
			return jsonEscape(val)
		}
		return parts[2]
	})
	return envBraced.ReplaceAllStringFunc(s, func(match string) string {
		parts := envBraced.FindStringSubmatch(match)
		return jsonEscape(os.Getenv(parts[1]))
	})
}

func jsonEscape(val string) string {
	raw, err := json.Marshal(val)
	if err != nil {
		return val
	}
	return string(raw[1 : len(raw)-1])
}
