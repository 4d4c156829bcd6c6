package application

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/vm"

	"github.com/ahrav/go-chateval/internal/domain"
	"github.com/ahrav/go-chateval/internal/ports"
)

// Summary aggregates the results of a run.
type Summary struct {
	Records      int
	MeanDuration float64
	// MeanScores is the mean of each score key over the records that have
	// it.
	MeanScores map[string]float64

	// Expression is the pass expression, empty when none was given.
	Expression string
	Passed     int
}

// PassRate returns the share of passing records, or 0 for an empty run.
func (s Summary) PassRate() float64 {
	if s.Records == 0 {
		return 0
	}
	return float64(s.Passed) / float64(s.Records)
}

// String renders the summary for terminal output.
func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "records: %d\n", s.Records)
	fmt.Fprintf(&b, "mean duration: %.2fs\n", s.MeanDuration)
	for _, key := range slices.Sorted(maps.Keys(s.MeanScores)) {
		fmt.Fprintf(&b, "mean %s: %.4f\n", key, s.MeanScores[key])
	}
	if s.Expression != "" {
		fmt.Fprintf(&b, "passed (%s): %d/%d (%.1f%%)\n", s.Expression, s.Passed, s.Records, 100*s.PassRate())
	}
	return b.String()
}

// CompilePass compiles a pass expression. The expression sees index,
// duration, and scores as a map; every score key is also a top-level
// variable.
func CompilePass(expression string) (*vm.Program, error) {
	program, err := expr.Compile(expression, expr.AllowUndefinedVariables(), expr.AsBool())
	if err != nil {
		return nil, ports.NewConfigError("pass_expression", fmt.Errorf("%w: %w", domain.ErrInvalidConfiguration, err))
	}
	return program, nil
}

// passReferences lists what a compiled pass expression reads: free
// variables, and score keys looked up through the scores map.
type passReferences struct {
	vars      map[string]struct{}
	scoreKeys map[string]struct{}
	declared  map[string]struct{}
}

func referencesOf(program *vm.Program) passReferences {
	refs := passReferences{
		vars:      make(map[string]struct{}),
		scoreKeys: make(map[string]struct{}),
		declared:  make(map[string]struct{}),
	}
	node := program.Node()
	ast.Walk(&node, &refs)
	for name := range refs.declared {
		delete(refs.vars, name)
	}
	return refs
}

// Visit implements ast.Visitor.
func (p *passReferences) Visit(node *ast.Node) {
	switch n := (*node).(type) {
	case *ast.IdentifierNode:
		p.vars[n.Value] = struct{}{}
	case *ast.VariableDeclaratorNode:
		p.declared[n.Name] = struct{}{}
	case *ast.MemberNode:
		ident, ok := n.Node.(*ast.IdentifierNode)
		if !ok || ident.Value != "scores" {
			return
		}
		if key, ok := n.Property.(*ast.StringNode); ok {
			p.scoreKeys[key.Value] = struct{}{}
		}
	}
}

// complete reports whether env defines everything the expression reads.
func (p *passReferences) complete(env map[string]any, scores map[string]float64) bool {
	for name := range p.vars {
		if _, ok := env[name]; !ok && name != "$env" {
			return false
		}
	}
	for key := range p.scoreKeys {
		if _, ok := scores[key]; !ok {
			return false
		}
	}
	return true
}

// Summarize aggregates results. When passExpr is non-empty every result
// is tested against it. A record lacking a score the expression reads
// does not pass; any other evaluation failure is an error.
func Summarize(results []domain.EvaluationResult, passExpr string) (Summary, error) {
	s := Summary{
		Records:    len(results),
		MeanScores: make(map[string]float64),
		Expression: passExpr,
	}

	var (
		program *vm.Program
		refs    passReferences
	)
	if passExpr != "" {
		var err error
		if program, err = CompilePass(passExpr); err != nil {
			return Summary{}, err
		}
		refs = referencesOf(program)
	}

	counts := make(map[string]int)
	var total float64
	for _, r := range results {
		total += r.Duration
		for key, v := range r.Scores {
			s.MeanScores[key] += v
			counts[key]++
		}

		if program == nil {
			continue
		}
		env := resultEnv(r)
		if !refs.complete(env, r.Scores) {
			continue
		}
		out, err := expr.Run(program, env)
		if err != nil {
			return Summary{}, fmt.Errorf("pass expression on record %d: %w", r.Index, err)
		}
		if ok, _ := out.(bool); ok {
			s.Passed++
		}
	}

	for key, n := range counts {
		s.MeanScores[key] /= float64(n)
	}
	if len(results) > 0 {
		s.MeanDuration = total / float64(len(results))
	}
	return s, nil
}

func resultEnv(r domain.EvaluationResult) map[string]any {
	scores := make(map[string]any, len(r.Scores))
	env := make(map[string]any, len(r.Scores)+3)
	for k, v := range r.Scores {
		scores[k] = v
		env[k] = v
	}
	env["index"] = r.Index
	env["duration"] = r.Duration
	env["scores"] = scores
	return env
}

