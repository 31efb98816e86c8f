package odoo

import "testing"

func TestAsString(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{false, ""},
		{"F-1", "F-1"},
		{int64(42), "42"},
		{1.5, "1.5"},
		{[]any{int64(3), "Draft"}, "Draft"},
	}
	for _, c := range cases {
		if got := AsString(c.in); got != c.want {
			t.Fatalf("AsString(%#v)=%q want %q", c.in, got, c.want)
		}
	}
}

func TestRecordMany2One(t *testing.T) {
	r := Record{"a": []any{int64(5), "Five"}, "b": false, "c": int64(9), "d": []any{}}
	if id, ok := r.Many2One("a"); !ok || id != 5 {
		t.Fatalf("a: got %d %v", id, ok)
	}
	if _, ok := r.Many2One("b"); ok {
		t.Fatalf("b should be absent")
	}
	if id, ok := r.Many2One("c"); !ok || id != 9 {
		t.Fatalf("c: got %d %v", id, ok)
	}
	if _, ok := r.Many2One("d"); ok {
		t.Fatalf("d should be absent")
	}
	if _, ok := r.Many2One("missing"); ok {
		t.Fatalf("missing should be absent")
	}
}

func TestDomainArgs(t *testing.T) {
	d := Domain{Cond("active", "=", true), Cond("project_ids", "in", []any{int64(1)})}
	args := d.args()
	if len(args) != 2 {
		t.Fatalf("unexpected args: %#v", args)
	}
	leaf, ok := args[1].([]any)
	if !ok || leaf[0] != "project_ids" || leaf[1] != "in" {
		t.Fatalf("unexpected leaf: %#v", args[1])
	}
	if d[0].Field() != "active" || d[0].Operator() != "=" || d[0].Value() != true {
		t.Fatalf("accessors: %#v", d[0])
	}
}
