package search

import (
	"fmt"
	"strings"
)

// Builder accumulates WHERE conditions with numbered placeholders
type Builder struct {
	conditions []string
	args       []interface{}
}

// NewBuilder creates an empty Builder
func NewBuilder() *Builder {
	return &Builder{}
}

// Arg registers a query argument and returns its placeholder
func (b *Builder) Arg(value interface{}) string {
	b.args = append(b.args, value)
	return fmt.Sprintf("$%d", len(b.args))
}

// Where adds a condition. Conditions are joined with AND.
func (b *Builder) Where(condition string) {
	b.conditions = append(b.conditions, condition)
}

// WhereSQL renders the WHERE clause
func (b *Builder) WhereSQL() string {
	var sb strings.Builder
	sb.WriteString("\n\t\tWHERE 1=1")
	for _, condition := range b.conditions {
		sb.WriteString("\n\t\t\tAND (")
		sb.WriteString(condition)
		sb.WriteString(")")
	}
	return sb.String()
}

// Window registers the LIMIT/OFFSET arguments and renders the clause. Call
// it after every Where so the count query can reuse Args() without them.
func (b *Builder) Window(p Pagination) string {
	limit := b.Arg(p.Limit)
	offset := b.Arg(p.Offset())
	return fmt.Sprintf("\n\t\tLIMIT %s OFFSET %s", limit, offset)
}

// Args returns a copy of the registered arguments
func (b *Builder) Args() []interface{} {
	args := make([]interface{}, len(b.args))
	copy(args, b.args)
	return args
}
