package acl

import (
	"fmt"
	"strings"
)

// SQLBuilder lowers predicate trees into parameterized SQL using positional
// `$n` placeholders. One builder accumulates arguments across every clause of
// a statement so placeholder numbering stays consistent.
type SQLBuilder struct {
	args []any
}

// NewSQLBuilder creates an empty builder.
func NewSQLBuilder() *SQLBuilder {
	return &SQLBuilder{}
}

// Args returns the accumulated bind arguments in placeholder order.
func (b *SQLBuilder) Args() []any {
	return b.args
}

// Bind appends an argument and returns its placeholder.
func (b *SQLBuilder) Bind(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

// Compile renders a predicate as a SQL boolean expression, appending its bind
// arguments to the builder.
func (b *SQLBuilder) Compile(p Predicate) string {
	switch c := p.(type) {
	case MatchAll:
		return "TRUE"

	case MatchNone:
		return "FALSE"

	case And:
		if len(c.Preds) == 0 {
			return "TRUE"
		}
		parts := make([]string, len(c.Preds))
		for i, sub := range c.Preds {
			parts[i] = b.Compile(sub)
		}
		return "(" + strings.Join(parts, " AND ") + ")"

	case Or:
		if len(c.Preds) == 0 {
			return "FALSE"
		}
		parts := make([]string, len(c.Preds))
		for i, sub := range c.Preds {
			parts[i] = b.Compile(sub)
		}
		return "(" + strings.Join(parts, " OR ") + ")"

	case ColumnEquals:
		return fmt.Sprintf("%s = %s", c.Column, b.Bind(c.Value))

	case ColumnInSet:
		if len(c.IDs) == 0 {
			return "FALSE"
		}
		placeholders := make([]string, len(c.IDs))
		for i, id := range c.IDs {
			placeholders[i] = b.Bind(id)
		}
		return fmt.Sprintf("%s IN (%s)", c.Column, strings.Join(placeholders, ", "))

	case ColumnAtLeast:
		return fmt.Sprintf("%s >= %s", c.Column, b.Bind(c.Value))

	case ColumnAtMost:
		return fmt.Sprintf("%s <= %s", c.Column, b.Bind(c.Value))

	case ColumnIsNull:
		return fmt.Sprintf("%s IS NULL", c.Column)

	case ColumnNotNull:
		return fmt.Sprintf("%s IS NOT NULL", c.Column)

	case ColumnLike:
		pattern := "%" + strings.ToLower(c.Text) + "%"
		return fmt.Sprintf("LOWER(%s) LIKE %s", c.Column, b.Bind(pattern))

	case DateBetween:
		return fmt.Sprintf("(%s >= %s AND %s <= %s)",
			c.Column, b.Bind(c.From), c.Column, b.Bind(c.To))

	case Exists:
		inner := "SELECT 1 FROM " + c.Table + " " + c.Alias + " WHERE " + c.Join
		if c.Where != nil {
			inner += " AND " + b.Compile(c.Where)
		}
		if c.Negated {
			return "NOT EXISTS (" + inner + ")"
		}
		return "EXISTS (" + inner + ")"

	default:
		// Unknown clause types are a programming error; fail closed.
		return "FALSE"
	}
}
