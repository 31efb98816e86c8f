package odoo

import (
	"fmt"
	"strconv"
)

// Model names used by the mirror.
const (
	ModelProject    = "project.project"
	ModelStage      = "project.task.type"
	ModelTask       = "project.task"
	ModelAttachment = "ir.attachment"
)

// Record is one row returned by search_read. Values keep the shapes produced
// by the XML-RPC decoder: int64, float64, string, bool, []any, map[string]any.
// Odoo encodes an empty value as boolean false.
type Record map[string]any

// Condition is a single domain leaf: field, operator, value.
type Condition []any

// Domain is a conjunction of conditions.
type Domain []Condition

// Cond builds a domain leaf.
func Cond(field, op string, value any) Condition {
	return Condition{field, op, value}
}

// Field returns the condition's field name.
func (c Condition) Field() string {
	if len(c) < 1 {
		return ""
	}
	s, _ := c[0].(string)
	return s
}

// Operator returns the condition's operator.
func (c Condition) Operator() string {
	if len(c) < 2 {
		return ""
	}
	s, _ := c[1].(string)
	return s
}

// Value returns the condition's operand.
func (c Condition) Value() any {
	if len(c) < 3 {
		return nil
	}
	return c[2]
}

// args converts the domain to plain nested slices for the wire encoder.
func (d Domain) args() []any {
	out := make([]any, 0, len(d))
	for _, c := range d {
		leaf := make([]any, len(c))
		copy(leaf, c)
		out = append(out, leaf)
	}
	return out
}

// Int returns an integer field, or 0 when the field is missing or false.
func (r Record) Int(name string) int64 {
	n, _ := AsInt(r[name])
	return n
}

// String returns a textual rendering of a field, or "" when empty.
// A many2one pair [id, "Display"] renders as its display name.
func (r Record) String(name string) string {
	return AsString(r[name])
}

// Many2One returns the id component of a many2one value.
func (r Record) Many2One(name string) (int64, bool) {
	switch v := r[name].(type) {
	case []any:
		if len(v) == 0 {
			return 0, false
		}
		return AsInt(v[0])
	default:
		n, ok := AsInt(v)
		if !ok || n == 0 {
			return 0, false
		}
		return n, true
	}
}

// AsInt converts a decoded numeric value to int64.
func AsInt(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case float64:
		return int64(x), true
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// AsString renders a decoded value as text; false and nil are empty.
func AsString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case bool:
		if !x {
			return ""
		}
		return "true"
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case []any:
		if len(x) == 2 {
			if _, ok := AsInt(x[0]); ok {
				return AsString(x[1])
			}
		}
		return fmt.Sprint(x...)
	default:
		return fmt.Sprint(x)
	}
}
