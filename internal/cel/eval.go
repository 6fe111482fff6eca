// Package cel compiles applicable_when expressions into receiver predicates.
//
// Expressions see three string variables: receiver (the concrete receiver
// name being matched), name (the declaring receiver) and kind (the
// capability kind, e.g. "event-from-body"). The string extension library is
// available, so lowerAscii, startsWith and friends work.
package cel

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/ext"

	"github.com/gezibash/hookmeta/pkg/webhook"
)

var env = sync.OnceValues(func() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("receiver", cel.StringType),
		cel.Variable("name", cel.StringType),
		cel.Variable("kind", cel.StringType),
		ext.Strings(),
	)
})

// Rule is a compiled applicability expression. It is safe for concurrent use.
type Rule struct {
	expr    string
	program cel.Program
}

// Compile parses and type-checks expr. The expression must yield a bool.
func Compile(expr string) (*Rule, error) {
	e, err := env()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}

	ast, issues := e.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("cel compile: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("cel compile: %q yields %s, want bool", expr, ast.OutputType())
	}

	prog, err := e.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("cel program: %w", err)
	}

	return &Rule{expr: expr, program: prog}, nil
}

func (r *Rule) String() string { return r.expr }

// Eval reports whether the rule accepts receiver for a descriptor of kind
// declared by owner. Evaluation errors yield false.
func (r *Rule) Eval(receiver, owner string, kind webhook.Kind) bool {
	out, _, err := r.program.Eval(map[string]any{
		"receiver": receiver,
		"name":     owner,
		"kind":     kind.String(),
	})
	if err != nil || out.Type() != types.BoolType {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}

// Predicate binds the rule to one descriptor.
func (r *Rule) Predicate(owner string, kind webhook.Kind) webhook.Predicate {
	return func(receiver string) bool {
		return r.Eval(receiver, owner, kind)
	}
}
