// Package odootest provides an in-memory Odoo for tests: a Store that answers
// search_read with real domain filtering and field projection, and an
// XML-RPC Server exposing it over HTTP.
package odootest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/flarebyte/folio-mirror/internal/odoo"
)

// Query records one search_read received by the store.
type Query struct {
	Model  string
	Domain odoo.Domain
	Fields []string
}

type table struct {
	rows   []odoo.Record
	fields map[string]bool
	err    error
}

// Store is an in-memory set of models.
type Store struct {
	Database string
	Username string
	Password string
	UID      int64

	mu      sync.Mutex
	models  map[string]*table
	queries []Query
}

// NewStore returns an empty store accepting admin/admin on database "test".
func NewStore() *Store {
	return &Store{
		Database: "test",
		Username: "admin",
		Password: "admin",
		UID:      2,
		models:   map[string]*table{},
	}
}

func (s *Store) table(model string) *table {
	t, ok := s.models[model]
	if !ok {
		t = &table{fields: map[string]bool{"id": true}}
		s.models[model] = t
	}
	return t
}

// Add appends rows to a model. Rows without "active" are active.
func (s *Store) Add(model string, rows ...odoo.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.table(model)
	for _, r := range rows {
		row := odoo.Record{}
		for k, v := range r {
			row[k] = v
			t.fields[k] = true
		}
		if _, ok := row["active"]; !ok {
			row["active"] = true
			t.fields["active"] = true
		}
		t.rows = append(t.rows, row)
	}
}

// DeclareFields marks fields as existing even if no row carries them.
func (s *Store) DeclareFields(model string, fields ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.table(model)
	for _, f := range fields {
		t.fields[f] = true
	}
}

// FailModel makes every search_read on model fail with err.
func (s *Store) FailModel(model string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table(model).err = err
}

// Queries returns the search_read calls received so far.
func (s *Store) Queries() []Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Query, len(s.queries))
	copy(out, s.queries)
	return out
}

// Authenticate mirrors common.authenticate: the uid, or 0 when rejected.
func (s *Store) Authenticate(db, username, password string) int64 {
	if db != s.Database || username != s.Username || password != s.Password {
		return 0
	}
	return s.UID
}

// SearchRead implements the directory capability used by the mirror.
func (s *Store) SearchRead(ctx context.Context, model string, domain odoo.Domain, fields []string) ([]odoo.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, Query{Model: model, Domain: domain, Fields: append([]string(nil), fields...)})
	if err := ctx.Err(); err != nil {
		return nil, &odoo.QueryError{Model: model, Method: "search_read", Err: err}
	}
	t, ok := s.models[model]
	if !ok {
		return nil, &odoo.QueryError{Model: model, Method: "search_read", Err: fmt.Errorf("Object %s doesn't exist", model)}
	}
	if t.err != nil {
		return nil, &odoo.QueryError{Model: model, Method: "search_read", Err: t.err}
	}
	for _, f := range fields {
		if !t.fields[f] {
			return nil, &odoo.QueryError{Model: model, Method: "search_read", Err: fmt.Errorf("Invalid field '%s' on model '%s'", f, model)}
		}
	}
	for _, c := range domain {
		if !t.fields[c.Field()] {
			return nil, &odoo.QueryError{Model: model, Method: "search_read", Err: fmt.Errorf("Invalid field '%s' in domain", c.Field())}
		}
	}
	var out []odoo.Record
	for _, row := range t.rows {
		keep, err := matches(row, domain)
		if err != nil {
			return nil, &odoo.QueryError{Model: model, Method: "search_read", Err: err}
		}
		if !keep {
			continue
		}
		out = append(out, project(row, fields))
	}
	return out, nil
}

func project(row odoo.Record, fields []string) odoo.Record {
	out := odoo.Record{"id": row["id"]}
	if len(fields) == 0 {
		for k, v := range row {
			out[k] = v
		}
		return out
	}
	for _, f := range fields {
		v, ok := row[f]
		if !ok || v == nil {
			v = false
		}
		out[f] = v
	}
	return out
}

var errOperator = errors.New("unsupported operator")

func matches(row odoo.Record, domain odoo.Domain) (bool, error) {
	for _, c := range domain {
		v := row[c.Field()]
		switch c.Operator() {
		case "=":
			if !equal(v, c.Value()) {
				return false, nil
			}
		case "!=":
			if equal(v, c.Value()) {
				return false, nil
			}
		case "in":
			if !intersects(v, c.Value()) {
				return false, nil
			}
		default:
			return false, fmt.Errorf("%w: %q", errOperator, c.Operator())
		}
	}
	return true, nil
}

func equal(field, want any) bool {
	if pair, ok := field.([]any); ok && len(pair) > 0 {
		field = pair[0]
	}
	if fi, ok := odoo.AsInt(field); ok {
		if wi, ok := odoo.AsInt(want); ok {
			return fi == wi
		}
	}
	switch w := want.(type) {
	case bool:
		b, ok := field.(bool)
		return ok && b == w
	case string:
		s, ok := field.(string)
		return ok && s == w
	}
	return false
}

func intersects(field, want any) bool {
	wants, ok := want.([]any)
	if !ok {
		return equal(field, want)
	}
	values, ok := field.([]any)
	if !ok {
		values = []any{field}
	}
	for _, v := range values {
		for _, w := range wants {
			if equal(v, w) {
				return true
			}
		}
	}
	return false
}
