package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// readFile decodes a flat TOML file into lower-cased key/value strings.
//
//	access_token_ttl = "15m"
//	ledger_backend   = "redis"
//	redis_db         = 2
func readFile(path string) (map[string]string, error) {
	raw := make(map[string]any)
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode TOML file %s: %w", path, err)
	}

	values := make(map[string]string, len(raw))
	for key, value := range raw {
		switch v := value.(type) {
		case map[string]any:
			return nil, fmt.Errorf("config key %q: nested tables are not supported", key)
		case []any:
			parts := make([]string, 0, len(v))
			for _, item := range v {
				parts = append(parts, fmt.Sprint(item))
			}
			values[strings.ToLower(key)] = strings.Join(parts, ",")
		default:
			values[strings.ToLower(key)] = fmt.Sprint(v)
		}
	}
	return values, nil
}
