package template

import (
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/vm"
)

// programs caches compiled expressions by source. Templates share the cache
// because the same conditions show up across many files.
var programs = struct {
	mu    sync.RWMutex
	cache map[string]*vm.Program
}{cache: make(map[string]*vm.Program)}

// eval evaluates an expression against env.
func eval(source string, env map[string]any) (any, error) {
	program, err := compile(source)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", source, err)
	}

	result, err := expr.Run(program, env)
	if err != nil {
		return nil, fmt.Errorf("eval %q: %w", source, err)
	}
	return result, nil
}

func compile(source string) (*vm.Program, error) {
	programs.mu.RLock()
	if program, ok := programs.cache[source]; ok {
		programs.mu.RUnlock()
		return program, nil
	}
	programs.mu.RUnlock()

	program, err := expr.Compile(source,
		expr.AllowUndefinedVariables(),
		expr.Function(truthyFunc, func(params ...any) (any, error) {
			return truthy(params[0]), nil
		}, new(func(any) bool)),
		expr.Patch(lenient{}),
	)
	if err != nil {
		return nil, err
	}

	programs.mu.Lock()
	if existing, ok := programs.cache[source]; ok {
		programs.mu.Unlock()
		return existing, nil
	}
	programs.cache[source] = program
	programs.mu.Unlock()

	return program, nil
}

const truthyFunc = "truthy"

// lenient rewrites expressions so they behave like template conditions:
// operands of not, and and or are tested with truthy, and member or index
// access on nil yields nil instead of failing.
type lenient struct{}

func (lenient) Visit(node *ast.Node) {
	switch n := (*node).(type) {
	case *ast.UnaryNode:
		if n.Operator == "not" || n.Operator == "!" {
			n.Node = truthyCall(n.Node)
		}
	case *ast.BinaryNode:
		switch n.Operator {
		case "and", "&&", "or", "||":
			n.Left = truthyCall(n.Left)
			n.Right = truthyCall(n.Right)
		}
	case *ast.MemberNode:
		if n.Optional || n.Method {
			return
		}
		n.Optional = true
		ast.Patch(node, &ast.ChainNode{Node: n})
	}
}

func truthyCall(arg ast.Node) ast.Node {
	call := &ast.CallNode{
		Callee:    &ast.IdentifierNode{Value: truthyFunc},
		Arguments: []ast.Node{arg},
	}
	call.SetLocation(arg.Location())
	return call
}
