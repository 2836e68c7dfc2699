package template

import (
	"errors"
	"fmt"
	"html"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Filter transforms a value in an output tag. Arguments are the evaluated
// expressions inside the filter's parentheses.
type Filter func(value any, args ...any) (any, error)

var builtinFilters = map[string]Filter{
	"upper": stringFilter(strings.ToUpper),
	"lower": stringFilter(strings.ToLower),
	"title": stringFilter(func(s string) string {
		// A Caser keeps state, so each call gets its own.
		return cases.Title(language.Und).String(s)
	}),
	"capitalize": stringFilter(capitalize),
	"trim":       stringFilter(strings.TrimSpace),
	"escape":     stringFilter(html.EscapeString),
	"e":          stringFilter(html.EscapeString),
	"safe":       func(v any, _ ...any) (any, error) { return v, nil },
	"length":     lengthFilter,
	"count":      lengthFilter,
	"default":    defaultFilter,
	"join":       joinFilter,
	"replace":    replaceFilter,
	"first":      firstFilter,
	"last":       lastFilter,
	"reverse":    reverseFilter,
	"truncate":   truncateFilter,
}

func stringFilter(fn func(string) string) Filter {
	return func(v any, _ ...any) (any, error) {
		return fn(format(v)), nil
	}
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

func lengthFilter(v any, _ ...any) (any, error) {
	if v == nil {
		return 0, nil
	}
	if s, ok := v.(string); ok {
		return utf8.RuneCountInString(s), nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Chan:
		return rv.Len(), nil
	}
	return nil, fmt.Errorf("%T has no length", v)
}

// defaultFilter replaces nil, or any false value when the second argument is true.
func defaultFilter(v any, args ...any) (any, error) {
	if len(args) == 0 {
		return nil, errors.New("default needs a fallback value")
	}
	if v == nil {
		return args[0], nil
	}
	if len(args) > 1 && truthy(args[1]) && !truthy(v) {
		return args[0], nil
	}
	return v, nil
}

func joinFilter(v any, args ...any) (any, error) {
	sep := ""
	if len(args) > 0 {
		sep = format(args[0])
	}
	items, err := iterate(v, false)
	if err != nil {
		return nil, err
	}
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = format(it.value)
	}
	return strings.Join(parts, sep), nil
}

func replaceFilter(v any, args ...any) (any, error) {
	if len(args) != 2 {
		return nil, errors.New("replace needs old and new values")
	}
	return strings.ReplaceAll(format(v), format(args[0]), format(args[1])), nil
}

func firstFilter(v any, _ ...any) (any, error) {
	items, err := iterate(v, false)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items[0].value, nil
}

func lastFilter(v any, _ ...any) (any, error) {
	items, err := iterate(v, false)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items[len(items)-1].value, nil
}

func reverseFilter(v any, _ ...any) (any, error) {
	if s, ok := v.(string); ok {
		runes := []rune(s)
		for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
			runes[i], runes[j] = runes[j], runes[i]
		}
		return string(runes), nil
	}
	items, err := iterate(v, false)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(items))
	for i, it := range items {
		out[len(items)-1-i] = it.value
	}
	return out, nil
}

// truncateFilter shortens a string to n runes and appends an ellipsis.
func truncateFilter(v any, args ...any) (any, error) {
	n := 255
	if len(args) > 0 {
		var ok bool
		if n, ok = toInt(args[0]); !ok || n < 0 {
			return nil, fmt.Errorf("invalid length %v", args[0])
		}
	}
	end := "..."
	if len(args) > 1 {
		end = format(args[1])
	}

	s := format(v)
	if utf8.RuneCountInString(s) <= n {
		return s, nil
	}
	return string([]rune(s)[:n]) + end, nil
}

func toInt(v any) (int, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return int(rv.Float()), true
	}
	return 0, false
}
