// Package flags provides reusable flag types for CLI commands.
package flags

import (
	"fmt"
	"sort"
	"strings"

	"github.com/feoweb/feo/pkg/cli/internal/parse"
)

// KeyValues implements flag.Value for repeatable key=value flags. A later
// value for the same key replaces the earlier one.
type KeyValues map[string]string

// String returns the pairs sorted by key.
func (kv *KeyValues) String() string {
	if kv == nil || len(*kv) == 0 {
		return ""
	}
	keys := make([]string, 0, len(*kv))
	for k := range *kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + (*kv)[k]
	}
	return strings.Join(parts, ",")
}

// Set parses one key=value pair.
func (kv *KeyValues) Set(value string) error {
	key, val, ok := parse.KeyValue(value, '=')
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return fmt.Errorf("expected key=value, got %q", value)
	}
	if *kv == nil {
		*kv = make(KeyValues)
	}
	(*kv)[key] = val
	return nil
}

// Type specifies the type label for Cobra flags.
func (kv *KeyValues) Type() string {
	return "key=value"
}
