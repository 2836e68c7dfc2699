package template

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// maxIncludeDepth bounds nested includes so a template cannot include itself forever.
const maxIncludeDepth = 16

var errIncludeDepth = errors.New("include depth exceeded")

// state holds the evaluation context of one render call.
type state struct {
	tmpl   *Template
	w      io.Writer
	scopes []map[string]any
	depth  int
}

func newState(t *Template, w io.Writer, data map[string]any) *state {
	s := &state{tmpl: t, w: w}
	if t.set != nil {
		s.push(t.set.globalsCopy())
	}
	scope := make(map[string]any, len(data))
	for k, v := range data {
		scope[k] = v
	}
	s.push(scope)
	return s
}

func (s *state) push(scope map[string]any) {
	s.scopes = append(s.scopes, scope)
}

func (s *state) pop() {
	s.scopes = s.scopes[:len(s.scopes)-1]
}

// env flattens the scope stack for expression evaluation. Inner scopes win.
func (s *state) env() map[string]any {
	env := make(map[string]any)
	for _, scope := range s.scopes {
		for k, v := range scope {
			env[k] = v
		}
	}
	return env
}

func (s *state) errorf(line int, format string, args ...any) error {
	return &ExecError{Name: s.tmpl.name, Line: line, Err: fmt.Errorf(format, args...)}
}

func (s *state) wrap(line int, err error) error {
	var execErr *ExecError
	if errors.As(err, &execErr) {
		return err
	}
	return &ExecError{Name: s.tmpl.name, Line: line, Err: err}
}

func (s *state) eval(source string, line int) (any, error) {
	v, err := eval(source, s.env())
	if err != nil {
		return nil, s.wrap(line, err)
	}
	return v, nil
}

func (s *state) walk(nodes []node) error {
	for _, n := range nodes {
		if err := s.exec(n); err != nil {
			return err
		}
	}
	return nil
}

func (s *state) exec(n node) error {
	switch n := n.(type) {
	case *textNode:
		_, err := io.WriteString(s.w, n.text)
		return err
	case *outputNode:
		return s.execOutput(n)
	case *ifNode:
		return s.execIf(n)
	case *forNode:
		return s.execFor(n)
	case *setNode:
		v, err := s.eval(n.expr, n.line)
		if err != nil {
			return err
		}
		s.scopes[len(s.scopes)-1][n.name] = v
		return nil
	case *includeNode:
		return s.execInclude(n)
	default:
		return fmt.Errorf("template: unexpected node %T", n)
	}
}

func (s *state) execOutput(n *outputNode) error {
	v, err := s.eval(n.expr, n.line)
	if err != nil {
		return err
	}
	for _, call := range n.filters {
		v, err = s.applyFilter(call, v, n.line)
		if err != nil {
			return err
		}
	}
	_, err = io.WriteString(s.w, format(v))
	return err
}

func (s *state) applyFilter(call filterCall, v any, line int) (any, error) {
	f, ok := s.lookupFilter(call.name)
	if !ok {
		return nil, s.errorf(line, "unknown filter %q", call.name)
	}
	args := make([]any, 0, len(call.args))
	for _, src := range call.args {
		arg, err := s.eval(src, line)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	out, err := f(v, args...)
	if err != nil {
		return nil, s.wrap(line, fmt.Errorf("filter %s: %w", call.name, err))
	}
	return out, nil
}

func (s *state) lookupFilter(name string) (Filter, bool) {
	if s.tmpl.set != nil {
		if f, ok := s.tmpl.set.filter(name); ok {
			return f, true
		}
	}
	f, ok := builtinFilters[name]
	return f, ok
}

func (s *state) execIf(n *ifNode) error {
	for _, b := range n.branches {
		v, err := s.eval(b.cond, b.line)
		if err != nil {
			return err
		}
		if truthy(v) {
			return s.walk(b.body)
		}
	}
	return s.walk(n.elseBody)
}

func (s *state) execFor(n *forNode) error {
	v, err := s.eval(n.iter, n.line)
	if err != nil {
		return err
	}
	items, err := iterate(v, n.keyVar != "")
	if err != nil {
		return s.wrap(n.line, err)
	}
	if len(items) == 0 {
		return s.walk(n.elseBody)
	}

	scope := make(map[string]any, 3)
	s.push(scope)
	defer s.pop()

	for i, item := range items {
		if n.keyVar != "" {
			scope[n.keyVar] = item.key
		}
		scope[n.valVar] = item.value
		scope["loop"] = map[string]any{
			"index":  i + 1,
			"index0": i,
			"first":  i == 0,
			"last":   i == len(items)-1,
			"length": len(items),
		}
		if err := s.walk(n.body); err != nil {
			return err
		}
	}
	return nil
}

func (s *state) execInclude(n *includeNode) error {
	v, err := s.eval(n.expr, n.line)
	if err != nil {
		return err
	}
	name, ok := v.(string)
	if !ok {
		return s.errorf(n.line, "include name must be a string, got %T", v)
	}
	if s.tmpl.set == nil {
		return s.errorf(n.line, "cannot include %q outside a template set", name)
	}
	if s.depth >= maxIncludeDepth {
		return s.wrap(n.line, fmt.Errorf("%w including %q", errIncludeDepth, name))
	}

	inc, err := s.tmpl.set.Get(name)
	if err != nil {
		return s.wrap(n.line, err)
	}

	child := &state{tmpl: inc, w: s.w, depth: s.depth + 1}
	child.scopes = append(child.scopes, s.scopes...)
	child.push(make(map[string]any))
	return child.walk(inc.nodes)
}

// truthy reports whether v counts as true in a condition.
func truthy(v any) bool {
	if v == nil {
		return false
	}
	switch x := v.(type) {
	case bool:
		return x
	case string:
		return x != ""
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.Slice, reflect.Map, reflect.Array, reflect.String:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

// format renders a value for output.
func format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case fmt.Stringer:
		return x.String()
	case error:
		return x.Error()
	}
	return fmt.Sprint(v)
}

type item struct {
	key   any
	value any
}

// iterate expands v into loop items. With pairs set, slices yield
// (index, element) and maps yield (key, value); otherwise maps yield keys.
func iterate(v any, pairs bool) ([]item, error) {
	if v == nil {
		return nil, nil
	}
	if str, ok := v.(string); ok {
		var items []item
		i := 0
		for _, r := range str {
			items = append(items, item{key: i, value: string(r)})
			i++
		}
		return items, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		items := make([]item, rv.Len())
		for i := range items {
			items[i] = item{key: i, value: rv.Index(i).Interface()}
		}
		return items, nil
	case reflect.Map:
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool {
			return lessKey(keys[i], keys[j])
		})
		items := make([]item, len(keys))
		for i, k := range keys {
			if pairs {
				items[i] = item{key: k.Interface(), value: rv.MapIndex(k).Interface()}
			} else {
				items[i] = item{key: i, value: k.Interface()}
			}
		}
		return items, nil
	}
	return nil, fmt.Errorf("cannot iterate over %T", v)
}

func lessKey(a, b reflect.Value) bool {
	switch a.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if b.Kind() == a.Kind() {
			return a.Int() < b.Int()
		}
	case reflect.Float32, reflect.Float64:
		if b.Kind() == a.Kind() {
			return a.Float() < b.Float()
		}
	}
	return strings.Compare(fmt.Sprint(a.Interface()), fmt.Sprint(b.Interface())) < 0
}
