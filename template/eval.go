package template

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kungfusheep/loom/value"
)

// Scope resolves names during evaluation: loop bindings first, innermost
// out, then the state.
type Scope struct {
	state  value.Getter
	parent *Scope
	name   string
	val    value.Value
	path   string
}

// NewScope returns a scope over state with no bindings.
func NewScope(state value.Getter) *Scope {
	return &Scope{state: state}
}

// With returns a child scope binding name to v. path is the canonical state
// path v was read from, or "" when v is derived.
func (s *Scope) With(name string, v value.Value, path string) *Scope {
	return &Scope{state: s.state, parent: s, name: name, val: v, path: path}
}

// Binding returns the value and origin path bound to name.
func (s *Scope) Binding(name string) (value.Value, string, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.name == name && cur.parent != nil {
			return cur.val, cur.path, true
		}
	}
	return value.Undefined, "", false
}

func (s *Scope) resolve(name string) (value.Value, string) {
	if v, path, ok := s.Binding(name); ok {
		return v, path
	}
	if s.state == nil {
		return value.Undefined, name
	}
	return s.state.Get(name), name
}

// Eval evaluates e in scope.
func Eval(e Expr, scope *Scope) (value.Value, error) {
	ev := evaluator{scope: scope}
	v, _, err := ev.eval(e)
	return v, err
}

// EvalDeps evaluates e and also returns the canonical state paths it read,
// without duplicates, in read order.
func EvalDeps(e Expr, scope *Scope) (value.Value, []string, error) {
	ev := evaluator{scope: scope, track: true}
	v, _, err := ev.eval(e)
	return v, ev.deps, err
}

// Item is one element of an iterated collection.
type Item struct {
	Value value.Value
	// Path is the canonical state path of the element, or "" when the
	// collection was derived.
	Path string
}

// EvalItems evaluates a For collection. Undefined iterates zero times; any
// other non-list is a TypeMismatch.
func EvalItems(e Expr, scope *Scope) ([]Item, []string, error) {
	ev := evaluator{scope: scope, track: true}
	v, origin, err := ev.eval(e)
	if err != nil {
		return nil, ev.deps, err
	}
	if v.IsUndefined() {
		return nil, ev.deps, nil
	}
	list, ok := v.Items()
	if !ok {
		return nil, ev.deps, &EvalError{Kind: TypeMismatch, Path: exprPath(e), Msg: fmt.Sprintf("cannot iterate over %s", v.Kind()), Pos: e.Position()}
	}
	items := make([]Item, len(list))
	for i, item := range list {
		items[i] = Item{Value: item}
		if origin != "" {
			items[i].Path = value.JoinPath(origin, strconv.Itoa(i))
		}
	}
	return items, ev.deps, nil
}

type evaluator struct {
	scope *Scope
	track bool
	deps  []string
}

func (ev *evaluator) record(path string) {
	if !ev.track || path == "" {
		return
	}
	for _, d := range ev.deps {
		if d == path {
			return
		}
	}
	ev.deps = append(ev.deps, path)
}

// eval returns the value and, for paths, the canonical state path it came
// from.
func (ev *evaluator) eval(e Expr) (value.Value, string, error) {
	switch n := e.(type) {
	case *Literal:
		return n.Value, "", nil
	case *PathExpr:
		return ev.evalPath(n)
	case *Unary:
		v, err := ev.value(n.X)
		if err != nil {
			return value.Undefined, "", err
		}
		if n.Op == "!" {
			return value.Bool(!v.Truthy()), "", nil
		}
		x, err := ev.number(n.X, v)
		if err != nil {
			return value.Undefined, "", err
		}
		return value.Number(-x), "", nil
	case *Binary:
		v, err := ev.binary(n)
		return v, "", err
	case *Call:
		args := make([]value.Value, len(n.Args))
		for i, a := range n.Args {
			v, err := ev.value(a)
			if err != nil {
				return value.Undefined, "", err
			}
			args[i] = v
		}
		v, err := callBuiltin(n, args)
		return v, "", err
	}
	return value.Undefined, "", fmt.Errorf("unknown expression %T", e)
}

func (ev *evaluator) value(e Expr) (value.Value, error) {
	v, _, err := ev.eval(e)
	return v, err
}

func (ev *evaluator) evalPath(n *PathExpr) (value.Value, string, error) {
	cur, origin := ev.scope.resolve(n.Root)
	text := n.Root
	for _, step := range n.Steps {
		key := step.Name
		if step.Index != nil {
			k, err := ev.value(step.Index)
			if err != nil {
				return value.Undefined, "", err
			}
			switch k.Kind() {
			case value.KindNumber:
				f, _ := k.Num()
				if f != math.Trunc(f) {
					return value.Undefined, "", &EvalError{Kind: TypeMismatch, Path: text, Msg: "index " + k.Display() + " is not an integer", Pos: n.Pos}
				}
				key = value.FormatNumber(f)
			case value.KindString:
				key = k.Display()
			default:
				return value.Undefined, "", &EvalError{Kind: TypeMismatch, Path: text, Msg: fmt.Sprintf("cannot index with %s", k.Kind()), Pos: n.Pos}
			}
			text += "[" + key + "]"
		} else {
			text += "." + key
		}
		if origin != "" {
			origin = value.JoinPath(origin, key)
		}

		switch cur.Kind() {
		case value.KindUndefined:
		case value.KindMap:
			cur = cur.Field(key)
		case value.KindList:
			i, err := strconv.Atoi(key)
			if err != nil {
				ev.record(origin)
				return value.Undefined, "", &EvalError{Kind: TypeMismatch, Path: text, Msg: fmt.Sprintf("list index %q is not a number", key), Pos: n.Pos}
			}
			cur = cur.Index(i)
		default:
			ev.record(origin)
			return value.Undefined, "", &EvalError{Kind: TypeMismatch, Path: text, Msg: fmt.Sprintf("cannot index %s with %q", cur.Kind(), key), Pos: n.Pos}
		}
	}
	ev.record(origin)
	return cur, origin, nil
}

func exprPath(e Expr) string {
	if p, ok := e.(*PathExpr); ok {
		return formatExpr(p, 0)
	}
	return ""
}

func (ev *evaluator) number(e Expr, v value.Value) (float64, error) {
	switch v.Kind() {
	case value.KindNumber:
		n, _ := v.Num()
		return n, nil
	case value.KindUndefined:
		return 0, &EvalError{Kind: UndefinedPath, Path: exprPath(e), Msg: "operand is undefined", Pos: e.Position()}
	}
	return 0, &EvalError{Kind: TypeMismatch, Path: exprPath(e), Msg: fmt.Sprintf("expected number, got %s", v.Kind()), Pos: e.Position()}
}

func (ev *evaluator) binary(n *Binary) (value.Value, error) {
	l, err := ev.value(n.L)
	if err != nil {
		return value.Undefined, err
	}
	switch n.Op {
	case "&&":
		if !l.Truthy() {
			return value.Bool(false), nil
		}
		r, err := ev.value(n.R)
		return value.Bool(r.Truthy()), err
	case "||":
		if l.Truthy() {
			return value.Bool(true), nil
		}
		r, err := ev.value(n.R)
		return value.Bool(r.Truthy()), err
	}

	r, err := ev.value(n.R)
	if err != nil {
		return value.Undefined, err
	}
	switch n.Op {
	case "==":
		return value.Bool(l.Equal(r)), nil
	case "!=":
		return value.Bool(!l.Equal(r)), nil
	case "+":
		return ev.add(n, l, r)
	case "<", "<=", ">", ">=":
		return ev.compare(n, l, r)
	}

	a, err := ev.number(n.L, l)
	if err != nil {
		return value.Undefined, err
	}
	b, err := ev.number(n.R, r)
	if err != nil {
		return value.Undefined, err
	}
	switch n.Op {
	case "-":
		return value.Number(a - b), nil
	case "*":
		return value.Number(a * b), nil
	case "/", "%":
		if b == 0 {
			return value.Undefined, &EvalError{Kind: DivisionByZero, Path: exprPath(n.R), Pos: n.Pos}
		}
		if n.Op == "/" {
			return value.Number(a / b), nil
		}
		return value.Number(math.Mod(a, b)), nil
	}
	return value.Undefined, &EvalError{Kind: TypeMismatch, Msg: "unknown operator " + n.Op, Pos: n.Pos}
}

func (ev *evaluator) undefinedOperand(n *Binary, l, r value.Value) error {
	side := n.L
	if !l.IsUndefined() {
		side = n.R
	}
	return &EvalError{Kind: UndefinedPath, Path: exprPath(side), Msg: "operand of " + n.Op + " is undefined", Pos: side.Position()}
}

func (ev *evaluator) add(n *Binary, l, r value.Value) (value.Value, error) {
	if l.IsUndefined() || r.IsUndefined() {
		return value.Undefined, ev.undefinedOperand(n, l, r)
	}
	lk, rk := l.Kind(), r.Kind()
	switch {
	case lk == value.KindNumber && rk == value.KindNumber:
		a, _ := l.Num()
		b, _ := r.Num()
		return value.Number(a + b), nil
	case (lk == value.KindString || lk == value.KindNumber) && (rk == value.KindString || rk == value.KindNumber):
		return value.String(l.Display() + r.Display()), nil
	}
	return value.Undefined, &EvalError{Kind: TypeMismatch, Msg: fmt.Sprintf("cannot add %s and %s", lk, rk), Pos: n.Pos}
}

func (ev *evaluator) compare(n *Binary, l, r value.Value) (value.Value, error) {
	if l.IsUndefined() || r.IsUndefined() {
		return value.Undefined, ev.undefinedOperand(n, l, r)
	}
	var c int
	switch {
	case l.Kind() == value.KindNumber && r.Kind() == value.KindNumber:
		a, _ := l.Num()
		b, _ := r.Num()
		switch {
		case a < b:
			c = -1
		case a > b:
			c = 1
		}
	case l.Kind() == value.KindString && r.Kind() == value.KindString:
		a, _ := l.Str()
		b, _ := r.Str()
		c = strings.Compare(a, b)
	default:
		return value.Undefined, &EvalError{Kind: TypeMismatch, Msg: fmt.Sprintf("cannot compare %s with %s", l.Kind(), r.Kind()), Pos: n.Pos}
	}
	switch n.Op {
	case "<":
		return value.Bool(c < 0), nil
	case "<=":
		return value.Bool(c <= 0), nil
	case ">":
		return value.Bool(c > 0), nil
	}
	return value.Bool(c >= 0), nil
}
