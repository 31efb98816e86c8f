package stage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/flarebyte/folio-mirror/internal/odoo"
)

// FieldDescriptor names one identifying field of a project and, optionally,
// a Lua rule computing the candidate value from the record.
type FieldDescriptor struct {
	Name string `json:"name"`
	Lua  string `json:"lua,omitempty"`
}

// DefaultFolioFields is the priority order used when none is configured.
func DefaultFolioFields() []FieldDescriptor {
	return []FieldDescriptor{
		{Name: "name"},
		{Name: "code"},
		{Name: "reference"},
		{Name: "x_folio"},
		{Name: "folio"},
	}
}

// FieldOutcome is the result of probing one identifying field.
type FieldOutcome string

const (
	FieldMatched     FieldOutcome = "matched"
	FieldNoMatch     FieldOutcome = "no-match"
	FieldUnsupported FieldOutcome = "unsupported"
	FieldQueryFailed FieldOutcome = "query-failed"
	FieldRuleFailed  FieldOutcome = "rule-failed"
)

// FieldAttempt reports how one field was probed.
type FieldAttempt struct {
	Field   string       `json:"field"`
	Outcome FieldOutcome `json:"outcome"`
	Records int          `json:"records"`
	Err     error        `json:"-"`
}

// Resolver finds the project matching a folio.
type Resolver struct {
	Directory Directory
	Fields    []FieldDescriptor
	Sandbox   LuaSandbox
}

// Resolution is the result of Resolve. Found is false for NotFound.
type Resolution struct {
	Project  Project
	Found    bool
	Attempts []FieldAttempt
}

// Resolve probes the fields in order and returns the first active project
// whose candidate value contains the folio, case-insensitively. A field the
// deployment does not know, or whose query fails, is skipped.
func (r Resolver) Resolve(ctx context.Context, folio string) Resolution {
	var res Resolution
	needle := strings.ToLower(strings.TrimSpace(folio))
	if needle == "" {
		return res
	}
	for _, fd := range r.Fields {
		p, attempt := r.probe(ctx, fd, needle)
		res.Attempts = append(res.Attempts, attempt)
		if attempt.Outcome == FieldMatched {
			res.Project = p
			res.Found = true
			return res
		}
	}
	return res
}

// ResolveProject resolves folio with the default sandbox limits.
func ResolveProject(ctx context.Context, dir Directory, fields []FieldDescriptor, folio string) (Project, bool) {
	res := Resolver{Directory: dir, Fields: fields, Sandbox: DefaultLuaSandbox()}.Resolve(ctx, folio)
	return res.Project, res.Found
}

func (r Resolver) probe(ctx context.Context, fd FieldDescriptor, needle string) (Project, FieldAttempt) {
	attempt := FieldAttempt{Field: fd.Name}
	rows, err := r.Directory.SearchRead(ctx, odoo.ModelProject,
		odoo.Domain{odoo.Cond("active", "=", true)},
		projection(fd.Name))
	if err != nil {
		attempt.Err = err
		attempt.Outcome = FieldQueryFailed
		if odoo.IsInvalidField(err) {
			attempt.Outcome = FieldUnsupported
		}
		return Project{}, attempt
	}
	attempt.Records = len(rows)
	for _, row := range rows {
		candidate, err := r.candidate(fd, row)
		if err != nil {
			// A rule error skips the record; a sandbox limit ends the field.
			if attempt.Err == nil {
				attempt.Err = fmt.Errorf("record %d: %w", row.Int("id"), err)
			}
			var violation SandboxViolation
			if errors.As(err, &violation) {
				attempt.Outcome = FieldRuleFailed
				return Project{}, attempt
			}
			continue
		}
		if strings.Contains(strings.ToLower(candidate), needle) {
			attempt.Outcome = FieldMatched
			return Project{
				ID:           row.Int("id"),
				Name:         row.String("name"),
				MatchedField: fd.Name,
				MatchedValue: candidate,
			}, attempt
		}
	}
	attempt.Outcome = FieldNoMatch
	if attempt.Err != nil {
		attempt.Outcome = FieldRuleFailed
	}
	return Project{}, attempt
}

// projection returns {id, name, field} without repeating name.
func projection(field string) []string {
	if field == "name" {
		return []string{"id", "name"}
	}
	return []string{"id", "name", field}
}

// candidate computes the value matched against the folio: the field value,
// or the record name when the field is empty.
func (r Resolver) candidate(fd FieldDescriptor, row odoo.Record) (string, error) {
	if fd.Lua != "" {
		return r.ruleCandidate(fd, row)
	}
	if v := row.String(fd.Name); v != "" {
		return v, nil
	}
	return row.String("name"), nil
}

func (r Resolver) ruleCandidate(fd FieldDescriptor, row odoo.Record) (string, error) {
	ret, violation, err := runLuaScript(r.Sandbox, map[string]any{
		"record": map[string]any(row),
		"field":  fd.Name,
	}, fd.Lua)
	if err != nil {
		return "", fmt.Errorf("rule for %s: %w", fd.Name, err)
	}
	if violation != "" {
		return "", luaViolation(fd.Name, violation)
	}
	if v := odoo.AsString(ret); v != "" {
		return v, nil
	}
	return row.String("name"), nil
}

func resolveProjectRunner(ctx context.Context, in Envelope, deps Deps) (Envelope, error) {
	log := deps.logger()
	if deps.Directory == nil {
		return Envelope{}, errors.New("resolve-project: no directory client")
	}
	r := Resolver{Directory: deps.Directory, Fields: in.folioFields(), Sandbox: in.sandbox()}
	res := r.Resolve(ctx, in.Folio)
	in.Attempts = res.Attempts
	for _, a := range res.Attempts {
		switch {
		case a.Err != nil:
			in.notify(log, StepResolveProject, "field "+a.Field, a.Err)
		default:
			log.Debug("field probed", "field", a.Field, "outcome", string(a.Outcome), "records", a.Records)
		}
	}
	if !res.Found {
		return in, ErrProjectNotFound
	}
	p := res.Project
	in.Project = &p
	log.Info("project found", "name", p.Name, "id", p.ID, "field", p.MatchedField)
	return in, nil
}

func init() { Register(StepResolveProject, resolveProjectRunner) }
