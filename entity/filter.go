package entity

import (
	"fmt"
	"sort"
	"strings"
)

// Operator is an operation that is applied to all operands of a FilterNode in
// operation mode. NOT is a unary operator and only ever applies to the first
// operand.
type Operator int

const (
	AND Operator = iota
	OR
	NOT
)

func (op Operator) String() string {
	switch op {
	case AND:
		return "AND"
	case OR:
		return "OR"
	case NOT:
		return "NOT"
	default:
		return fmt.Sprintf("Operator(%d)", op)
	}
}

// Filter is implemented by everything that can select Records for Query, FindOne,
// and Count. Any Filter can be converted to a FilterNode and combined with
// others via And, Or, or Negate.
type Filter interface {
	Node() FilterNode
	And(clause Filter, clauses ...Filter) FilterNode
	Or(clause Filter, clauses ...Filter) FilterNode
	Negate() FilterNode

	Matches(r Record) bool
	String() string
}

// FilterNode is a tree of conditions. It is either in condition mode, where Cond
// or Fn holds the check to perform, or in operation mode, where every operand
// in Group is tested and the results combined with Op.
//
// If Cond is non-nil it is used and everything else is ignored. Otherwise, if
// Fn is non-nil it is used. If both are nil the node is an operation.
//
// The zero value is an AND of nothing, which matches every Record.
type FilterNode struct {
	Cond  *Where
	Fn    *Predicate
	Op    Operator
	Group []FilterNode
}

// String prints out the string representation of the FilterNode. Two
// FilterNodes that produce the same string match the same Records.
func (n FilterNode) String() string {
	if n.Cond != nil {
		return n.Cond.String()
	}
	if n.Fn != nil {
		return n.Fn.String()
	}
	if len(n.Group) == 0 {
		if n.Op == OR || n.Op == NOT {
			return "FALSE"
		}
		return "TRUE"
	}

	var sb strings.Builder
	if n.Op == NOT {
		sb.WriteString("NOT (")
		sb.WriteString(n.Group[0].String())
		sb.WriteRune(')')
		return sb.String()
	}

	delim := " " + n.Op.String() + " "
	for _, child := range n.Group {
		if sb.Len() > 0 {
			sb.WriteString(delim)
		}
		sb.WriteRune('(')
		sb.WriteString(child.String())
		sb.WriteRune(')')
	}
	return sb.String()
}

// Simplify returns a FilterNode with the same logic as n but with redundant
// double negations removed.
func (n FilterNode) Simplify() FilterNode {
	if !n.IsOperation() {
		return n
	}

	if n.Op == NOT {
		if len(n.Group) == 0 {
			return n
		}
		inner := n.Group[0]
		if inner.IsOperation() && inner.Op == NOT && len(inner.Group) > 0 {
			return inner.Group[0].Simplify()
		}
		return FilterNode{Op: NOT, Group: []FilterNode{inner.Simplify()}}
	}

	simplified := FilterNode{
		Op:    n.Op,
		Group: make([]FilterNode, len(n.Group)),
	}
	for i := range n.Group {
		simplified.Group[i] = n.Group[i].Simplify()
	}
	return simplified
}

// Node returns the FilterNode itself.
func (n FilterNode) Node() FilterNode {
	return n
}

// IsOperation returns whether n combines operands with Op rather than checking
// a condition itself.
func (n FilterNode) IsOperation() bool {
	return n.Cond == nil && n.Fn == nil
}

// And returns a FilterNode that matches only those Records that match n and
// every other given Filter. Operands are evaluated in order.
func (n FilterNode) And(f Filter, fs ...Filter) FilterNode {
	return combine(AND, n, f, fs)
}

// Or returns a FilterNode that matches every Record that matches n or at least
// one of the other given Filters. Operands are evaluated in order.
func (n FilterNode) Or(f Filter, fs ...Filter) FilterNode {
	return combine(OR, n, f, fs)
}

// Negate returns a FilterNode that matches only those Records that n does not.
func (n FilterNode) Negate() FilterNode {
	return FilterNode{Group: []FilterNode{n}, Op: NOT}
}

// Matches returns whether r satisfies n.
func (n FilterNode) Matches(r Record) bool {
	if n.Cond != nil {
		return n.Cond.Matches(r)
	}
	if n.Fn != nil {
		return n.Fn.Matches(r)
	}

	switch n.Op {
	case AND:
		for _, child := range n.Group {
			if !child.Matches(r) {
				return false
			}
		}
		return true
	case OR:
		for _, child := range n.Group {
			if child.Matches(r) {
				return true
			}
		}
		return false
	case NOT:
		if len(n.Group) == 0 {
			return false
		}
		return !n.Group[0].Matches(r)
	default:
		panic(fmt.Sprintf("undefined operator in filter: %v", n.Op))
	}
}

func combine(op Operator, first FilterNode, f Filter, fs []Filter) FilterNode {
	n := FilterNode{
		Op:    op,
		Group: make([]FilterNode, len(fs)+2),
	}

	n.Group[0] = first
	n.Group[1] = f.Node()
	for i := range fs {
		n.Group[2+i] = fs[i].Node()
	}

	return n
}

// Where maps field names to the Criterion that field must meet. A Record
// matches a Where only if every Criterion is met. A field that the Record does
// not have is checked as nil.
//
// An empty Where matches every Record.
type Where map[string]Criterion

// Matches returns whether r meets every criterion in w.
func (w Where) Matches(r Record) bool {
	for field, crit := range w {
		if crit.Meets == nil {
			continue
		}
		if !crit.Meets(r[field]) {
			return false
		}
	}
	return true
}

// String prints out the string representation of w. Fields are given in sorted
// order so that two equivalent Wheres always print identically.
func (w Where) String() string {
	fields := make([]string, 0, len(w))
	for f := range w {
		if w[f].Meets != nil {
			fields = append(fields, f)
		}
	}
	if len(fields) < 1 {
		return "TRUE"
	}
	sort.Strings(fields)

	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = w[f].FilledString(f)
	}
	return strings.Join(parts, " "+AND.String()+" ")
}

// Node returns w as a condition-mode FilterNode.
func (w Where) Node() FilterNode {
	return FilterNode{Cond: &w}
}

// And returns a FilterNode matching Records that match w and all of the
// others.
func (w Where) And(f Filter, fs ...Filter) FilterNode {
	return combine(AND, w.Node(), f, fs)
}

// Or returns a FilterNode matching Records that match w or any of the others.
func (w Where) Or(f Filter, fs ...Filter) FilterNode {
	return combine(OR, w.Node(), f, fs)
}

// Negate returns a FilterNode matching Records that w does not.
func (w Where) Negate() FilterNode {
	return w.Node().Negate()
}

// Predicate is a Filter backed by an arbitrary function over the whole Record.
// Use it for checks that span more than one field.
type Predicate struct {
	Match func(r Record) bool

	// Name is used for String. Two Predicates with the same Name are assumed to
	// match the same Records.
	Name string
}

// Func returns a Predicate that calls fn. The name, if given, is used for
// printing; otherwise a generic one is used.
func Func(fn func(r Record) bool, name ...string) Predicate {
	p := Predicate{Match: fn, Name: "FUNC"}
	if len(name) > 0 && name[0] != "" {
		p.Name = name[0]
	}
	return p
}

// Not returns a FilterNode matching exactly the Records that f does not.
func Not(f Filter) FilterNode {
	return f.Negate()
}

func (p Predicate) Matches(r Record) bool {
	if p.Match == nil {
		return true
	}
	return p.Match(r)
}

func (p Predicate) String() string {
	return p.Name + "(record)"
}

func (p Predicate) Node() FilterNode {
	return FilterNode{Fn: &p}
}

func (p Predicate) And(f Filter, fs ...Filter) FilterNode {
	return combine(AND, p.Node(), f, fs)
}

func (p Predicate) Or(f Filter, fs ...Filter) FilterNode {
	return combine(OR, p.Node(), f, fs)
}

func (p Predicate) Negate() FilterNode {
	return p.Node().Negate()
}
