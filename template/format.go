package template

import (
	"fmt"
	"strings"

	"github.com/kungfusheep/loom/value"
)

// Format writes n back out as template source in canonical form. Parsing the
// result yields a tree equal to n apart from positions.
func Format(n Node) string {
	var b strings.Builder
	formatNode(&b, n, 0)
	return b.String()
}

// FormatExpr writes an expression with the minimum parentheses.
func FormatExpr(e Expr) string { return formatExpr(e, 0) }

func indent(b *strings.Builder, depth int) {
	for range depth {
		b.WriteString("  ")
	}
}

func formatNodes(b *strings.Builder, nodes []Node, depth int) {
	for _, n := range nodes {
		formatNode(b, n, depth)
	}
}

func formatNode(b *strings.Builder, n Node, depth int) {
	switch t := n.(type) {
	case *Document:
		formatNodes(b, t.Children, depth)
		return
	case *Element:
		indent(b, depth)
		b.WriteString("<" + t.Name)
		for _, a := range t.Attrs {
			b.WriteString(" " + formatAttr(a))
		}
		if t.SelfClosing {
			b.WriteString(" />\n")
			return
		}
		b.WriteString(">\n")
		formatNodes(b, t.Children, depth+1)
		indent(b, depth)
		b.WriteString("</" + t.Name + ">\n")
		return
	case *Text:
		indent(b, depth)
		b.WriteString(formatText(t))
		b.WriteByte('\n')
		return
	case *If:
		indent(b, depth)
		b.WriteString("{% if " + formatExpr(t.Cond, 0) + " %}\n")
		cur := t
		for {
			formatNodes(b, cur.Then, depth+1)
			if len(cur.Else) == 0 {
				break
			}
			if next, ok := cur.Else[0].(*If); ok && len(cur.Else) == 1 {
				indent(b, depth)
				b.WriteString("{% else if " + formatExpr(next.Cond, 0) + " %}\n")
				cur = next
				continue
			}
			indent(b, depth)
			b.WriteString("{% else %}\n")
			formatNodes(b, cur.Else, depth+1)
			break
		}
	case *For:
		indent(b, depth)
		b.WriteString("{% for " + t.Binding + " in " + formatExpr(t.Collection, 0))
		if t.Key != nil {
			b.WriteString(" key " + formatExpr(t.Key, 0))
		}
		b.WriteString(" %}\n")
		formatNodes(b, t.Body, depth+1)
	default:
		panic(fmt.Sprintf("template: cannot format %T", n))
	}
	indent(b, depth)
	b.WriteString("{% end %}\n")
}

func formatAttr(a Attr) string {
	if a.Value.Expr != nil {
		return a.Key + "={{ " + formatExpr(a.Value.Expr, 0) + " }}"
	}
	v := a.Value.Literal
	switch v.Kind() {
	case value.KindBool:
		if b, _ := v.Boolean(); b {
			return a.Key
		}
		return a.Key + "=false"
	case value.KindNumber:
		if n, _ := v.Num(); n >= 0 {
			return a.Key + "=" + value.FormatNumber(n)
		}
		return a.Key + "={{ " + formatExpr(&Literal{Value: v}, 0) + " }}"
	case value.KindString:
		s, _ := v.Str()
		return a.Key + "=" + quote(s, true)
	}
	return a.Key + "={{ null }}"
}

func formatText(t *Text) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, seg := range t.Segments {
		if seg.Expr != nil {
			b.WriteString("{{ " + formatExpr(seg.Expr, 0) + " }}")
			continue
		}
		s := quote(seg.Literal, true)
		b.WriteString(s[1 : len(s)-1])
	}
	b.WriteByte('"')
	return b.String()
}

var (
	exprEscaper   = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\t", `\t`)
	markupEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\t", `\t`, "{", `\{`)
)

func quote(s string, markup bool) string {
	if markup {
		return `"` + markupEscaper.Replace(s) + `"`
	}
	return `"` + exprEscaper.Replace(s) + `"`
}

const (
	precUnary   = 7
	precPrimary = 8
)

func formatExpr(e Expr, prec int) string {
	switch n := e.(type) {
	case *Literal:
		v := n.Value
		switch v.Kind() {
		case value.KindUndefined:
			return "null"
		case value.KindString:
			s, _ := v.Str()
			return quote(s, false)
		case value.KindNumber:
			f, _ := v.Num()
			if f < 0 {
				s := "-" + value.FormatNumber(-f)
				if prec > precUnary {
					return "(" + s + ")"
				}
				return s
			}
			return value.FormatNumber(f)
		}
		return v.Display()
	case *PathExpr:
		var b strings.Builder
		b.WriteString(n.Root)
		for _, st := range n.Steps {
			if st.Index != nil {
				b.WriteString("[" + formatExpr(st.Index, 0) + "]")
			} else {
				b.WriteString("." + st.Name)
			}
		}
		return b.String()
	case *Unary:
		s := n.Op + formatExpr(n.X, precUnary)
		if prec > precUnary {
			return "(" + s + ")"
		}
		return s
	case *Binary:
		p := binaryPrec[n.Op]
		s := formatExpr(n.L, p) + " " + n.Op + " " + formatExpr(n.R, p+1)
		if p < prec {
			return "(" + s + ")"
		}
		return s
	case *Call:
		args := make([]string, len(n.Args))
		for i, a := range n.Args {
			args[i] = formatExpr(a, 0)
		}
		return n.Func + "(" + strings.Join(args, ", ") + ")"
	}
	return fmt.Sprintf("<%T>", e)
}
