package stage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flarebyte/folio-mirror/internal/odoo"
	"github.com/flarebyte/folio-mirror/internal/odoo/odootest"
)

func outcomes(attempts []FieldAttempt) []FieldOutcome {
	out := make([]FieldOutcome, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, a.Outcome)
	}
	return out
}

func TestResolve_FallsBackThroughFields(t *testing.T) {
	store := scenarioStore()
	r := Resolver{Directory: store, Fields: DefaultFolioFields(), Sandbox: DefaultLuaSandbox()}

	res := r.Resolve(context.Background(), "f-2024-001")

	require.True(t, res.Found)
	assert.Equal(t, int64(7), res.Project.ID)
	assert.Equal(t, "Obra Norte", res.Project.Name)
	assert.Equal(t, "reference", res.Project.MatchedField)
	assert.Equal(t, []FieldOutcome{FieldNoMatch, FieldUnsupported, FieldMatched}, outcomes(res.Attempts))
	// x_folio and folio are never queried once reference matched.
	assert.Len(t, store.Queries(), 3)
}

func TestResolve_ProjectionAndDomain(t *testing.T) {
	store := scenarioStore()
	r := Resolver{Directory: store, Fields: []FieldDescriptor{{Name: "name"}, {Name: "reference"}}}

	r.Resolve(context.Background(), "nothing-matches")

	q := store.Queries()
	require.Len(t, q, 2)
	assert.Equal(t, []string{"id", "name"}, q[0].Fields)
	assert.Equal(t, []string{"id", "name", "reference"}, q[1].Fields)
	for _, query := range q {
		assert.Equal(t, odoo.ModelProject, query.Model)
		require.Len(t, query.Domain, 1)
		assert.Equal(t, "active", query.Domain[0].Field())
		assert.Equal(t, true, query.Domain[0].Value())
	}
}

func TestResolve_FirstRecordWins(t *testing.T) {
	store := odootest.NewStore()
	store.Add(odoo.ModelProject,
		odoo.Record{"id": int64(1), "name": "Casa F-1 A"},
		odoo.Record{"id": int64(2), "name": "Casa F-1 B"},
	)
	r := Resolver{Directory: store, Fields: DefaultFolioFields()}

	res := r.Resolve(context.Background(), "F-1")

	require.True(t, res.Found)
	assert.Equal(t, int64(1), res.Project.ID)
	assert.Len(t, res.Attempts, 1)
}

func TestResolve_EmptyValueFallsBackToName(t *testing.T) {
	store := odootest.NewStore()
	store.Add(odoo.ModelProject, odoo.Record{"id": int64(4), "name": "Proyecto X-77", "code": false})
	r := Resolver{Directory: store, Fields: []FieldDescriptor{{Name: "code"}}}

	res := r.Resolve(context.Background(), "x-77")

	require.True(t, res.Found)
	assert.Equal(t, "Proyecto X-77", res.Project.MatchedValue)
}

func TestResolve_InactiveProjectsIgnored(t *testing.T) {
	store := odootest.NewStore()
	store.Add(odoo.ModelProject, odoo.Record{"id": int64(4), "name": "F-9", "active": false})
	r := Resolver{Directory: store, Fields: DefaultFolioFields()}

	res := r.Resolve(context.Background(), "F-9")

	assert.False(t, res.Found)
}

func TestResolve_EmptyFolioIssuesNoQuery(t *testing.T) {
	store := scenarioStore()
	r := Resolver{Directory: store, Fields: DefaultFolioFields()}

	for _, folio := range []string{"", "   "} {
		res := r.Resolve(context.Background(), folio)
		assert.False(t, res.Found)
	}
	assert.Empty(t, store.Queries())
}

func TestResolve_QueryFailureSkipsField(t *testing.T) {
	store := odootest.NewStore()
	store.FailModel(odoo.ModelProject, errors.New("connection reset"))
	r := Resolver{Directory: store, Fields: DefaultFolioFields()}

	res := r.Resolve(context.Background(), "F-1")

	assert.False(t, res.Found)
	assert.Len(t, res.Attempts, len(DefaultFolioFields()))
	for _, a := range res.Attempts {
		assert.Equal(t, FieldQueryFailed, a.Outcome)
		assert.Error(t, a.Err)
	}
}

func TestResolve_LuaRule(t *testing.T) {
	store := odootest.NewStore()
	store.Add(odoo.ModelProject,
		odoo.Record{"id": int64(6), "name": "Galpón"},
		odoo.Record{"id": int64(7), "name": "Obra Norte"},
	)
	r := Resolver{
		Directory: store,
		Fields: []FieldDescriptor{
			{Name: "name", Lua: `"OBR-" .. string.format("%04d", record.id)`},
		},
		Sandbox: DefaultLuaSandbox(),
	}

	res := r.Resolve(context.Background(), "obr-0007")

	require.True(t, res.Found)
	assert.Equal(t, int64(7), res.Project.ID)
	assert.Equal(t, "OBR-0007", res.Project.MatchedValue)
}

func TestResolve_BrokenRuleMovesOn(t *testing.T) {
	store := scenarioStore()
	r := Resolver{
		Directory: store,
		Fields: []FieldDescriptor{
			{Name: "name", Lua: "error('boom')"},
			{Name: "reference"},
		},
		Sandbox: DefaultLuaSandbox(),
	}

	res := r.Resolve(context.Background(), "F-2024-001")

	require.True(t, res.Found)
	assert.Equal(t, []FieldOutcome{FieldRuleFailed, FieldMatched}, outcomes(res.Attempts))
}

func TestResolveProjectRunner_NotFound(t *testing.T) {
	store := scenarioStore()
	out, err := Run(context.Background(), StepResolveProject, Envelope{Folio: "Z-404"}, testDeps(store, newFS()))

	require.ErrorIs(t, err, ErrProjectNotFound)
	assert.Nil(t, out.Project)
	assert.NotEmpty(t, out.Attempts)
}

func TestResolveProjectRunner_UsesConfiguredFields(t *testing.T) {
	store := scenarioStore()
	in := Envelope{
		Folio: "F-2024-001",
		Meta:  &Meta{FolioFields: []FieldDescriptor{{Name: "reference"}}},
	}

	out, err := Run(context.Background(), StepResolveProject, in, testDeps(store, newFS()))

	require.NoError(t, err)
	require.NotNil(t, out.Project)
	assert.Equal(t, int64(7), out.Project.ID)
	assert.Len(t, store.Queries(), 1)
	assert.Empty(t, out.Notices)
}

func TestResolveProject(t *testing.T) {
	p, found := ResolveProject(context.Background(), scenarioStore(), DefaultFolioFields(), "  F-2023-090 ")
	require.True(t, found)
	assert.Equal(t, int64(3), p.ID)

	_, found = ResolveProject(context.Background(), scenarioStore(), DefaultFolioFields(), "   ")
	assert.False(t, found)
}

func TestResolve_RulesWithLoopsAndKeywordFields(t *testing.T) {
	cases := []struct {
		name  string
		rule  string
		folio string
	}{
		{"field name containing return", "record.x_return_ref", "f-9"},
		{"keyword inside a string", `"OBR-" .. string.format("%04d", record.id) .. " for "`, "obr-0007 for"},
		{"loop in a closure", `(function() local s = "" for i = 1, 2 do s = s .. record.id end return "OBR-" .. s end)()`, "obr-77"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := odootest.NewStore()
			store.Add(odoo.ModelProject, odoo.Record{"id": int64(7), "name": "Obra Norte", "x_return_ref": "F-9"})
			r := Resolver{
				Directory: store,
				Fields:    []FieldDescriptor{{Name: "x_return_ref", Lua: tc.rule}},
				Sandbox:   DefaultLuaSandbox(),
			}

			res := r.Resolve(context.Background(), tc.folio)

			require.True(t, res.Found, "%+v", res.Attempts)
			assert.Equal(t, int64(7), res.Project.ID)
			assert.NoError(t, res.Attempts[0].Err)
		})
	}
}

func TestResolve_RuleErrorSkipsOnlyThatRecord(t *testing.T) {
	store := odootest.NewStore()
	store.Add(odoo.ModelProject,
		odoo.Record{"id": int64(6), "name": "Galpón"},
		odoo.Record{"id": int64(7), "name": "Obra Norte", "x_code": "N-7"},
	)
	r := Resolver{
		Directory: store,
		Fields:    []FieldDescriptor{{Name: "x_code", Lua: `"OBR-" .. record.x_code`}},
		Sandbox:   DefaultLuaSandbox(),
	}

	res := r.Resolve(context.Background(), "obr-n-7")

	require.True(t, res.Found)
	assert.Equal(t, int64(7), res.Project.ID)
	require.Len(t, res.Attempts, 1)
	assert.Equal(t, FieldMatched, res.Attempts[0].Outcome)
	assert.ErrorContains(t, res.Attempts[0].Err, "record 6")
}

func TestResolve_SandboxLimitEndsField(t *testing.T) {
	store := odootest.NewStore()
	store.Add(odoo.ModelProject,
		odoo.Record{"id": int64(6), "name": "Galpón"},
		odoo.Record{"id": int64(7), "name": "Obra Norte"},
	)
	sandbox := DefaultLuaSandbox()
	sandbox.InstructionLimit = 200
	r := Resolver{
		Directory: store,
		Fields: []FieldDescriptor{
			{Name: "name", Lua: "local s = 0\nfor i = 1, 100000 do s = s + i end\nreturn record.name"},
		},
		Sandbox: sandbox,
	}

	res := r.Resolve(context.Background(), "obra")

	assert.False(t, res.Found)
	require.Len(t, res.Attempts, 1)
	assert.Equal(t, FieldRuleFailed, res.Attempts[0].Outcome)
	var violation SandboxViolation
	require.ErrorAs(t, res.Attempts[0].Err, &violation)
	assert.Equal(t, SandboxViolation(sandboxInstructionViolation), violation)
	assert.ErrorContains(t, res.Attempts[0].Err, "record 6")
}

func TestResolveProjectRunner_RuleErrorOnOneRecordIsNoticed(t *testing.T) {
	store := odootest.NewStore()
	store.Add(odoo.ModelProject,
		odoo.Record{"id": int64(6), "name": "Galpón"},
		odoo.Record{"id": int64(7), "name": "Obra Norte", "x_code": "N-7"},
	)
	in := Envelope{
		Folio: "obr-n-7",
		Meta:  &Meta{FolioFields: []FieldDescriptor{{Name: "x_code", Lua: `"OBR-" .. record.x_code`}}},
	}

	out, err := Run(context.Background(), StepResolveProject, in, testDeps(store, newFS()))

	require.NoError(t, err)
	require.NotNil(t, out.Project)
	assert.Equal(t, int64(7), out.Project.ID)
	require.Len(t, out.Notices, 1)
	assert.Equal(t, "field x_code", out.Notices[0].Subject)
}
