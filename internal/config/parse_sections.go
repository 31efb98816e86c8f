package config

import (
	"fmt"

	"cuelang.org/go/cue"
)

// parseConnectionSection extracts connection.*. A password in the file is
// rejected.
func parseConnectionSection(v cue.Value) (Connection, error) {
	var c Connection
	cv := v.LookupPath(cue.ParsePath("connection"))
	if !cv.Exists() {
		return c, nil
	}
	if cv.LookupPath(cue.ParsePath("password")).Exists() {
		return c, fmt.Errorf("invalid config: connection.password is not allowed; use ODOO_PASSWORD")
	}
	c.URL, _ = optionalString(cv, "url")
	c.Database, _ = optionalString(cv, "database")
	c.Username, _ = optionalString(cv, "username")
	c.TimeoutSeconds, _ = optionalInt(cv, "timeoutSeconds")
	return c, nil
}

// parseFolioFieldsSection extracts folioFields as an ordered list. Entries
// may be plain strings or {name, lua} structs.
func parseFolioFieldsSection(v cue.Value) ([]FolioField, error) {
	fv := v.LookupPath(cue.ParsePath("folioFields"))
	if !fv.Exists() {
		return nil, nil
	}
	if fv.Kind() != cue.ListKind {
		return nil, fmt.Errorf("invalid type for field: folioFields (expected list)")
	}
	it, err := fv.List()
	if err != nil {
		return nil, fmt.Errorf("invalid value for folioFields: %v", err)
	}
	var out []FolioField
	for i := 0; it.Next(); i++ {
		item := it.Value()
		switch item.Kind() {
		case cue.StringKind:
			var name string
			if err := item.Decode(&name); err != nil {
				return nil, fmt.Errorf("invalid value for folioFields[%d]: %v", i, err)
			}
			out = append(out, FolioField{Name: name})
		case cue.StructKind:
			name, ok := optionalString(item, "name")
			if !ok {
				return nil, fmt.Errorf("missing required field: folioFields[%d].name", i)
			}
			lua, _ := optionalString(item, "lua")
			out = append(out, FolioField{Name: name, Lua: lua})
		default:
			return nil, fmt.Errorf("invalid type for field: folioFields[%d] (expected string or struct)", i)
		}
	}
	return out, nil
}

// parseOutputSection extracts optional output.* fields.
func parseOutputSection(v cue.Value) Output {
	var o Output
	ov := v.LookupPath(cue.ParsePath("output"))
	if !ov.Exists() {
		return o
	}
	o.Dir, o.HasDir = optionalString(ov, "dir")
	o.Manifest, o.HasManifest = optionalBool(ov, "manifest")
	o.Unstaged, o.HasUnstaged = optionalString(ov, "unstaged")
	return o
}

// parseLuaSandboxSection extracts optional lua sandbox settings.
func parseLuaSandboxSection(v cue.Value) LuaSandbox {
	var s LuaSandbox
	lv := v.LookupPath(cue.ParsePath("lua"))
	if !lv.Exists() {
		return s
	}
	s.HasSection = true
	s.TimeoutMs, s.HasTimeoutMs = optionalInt(lv, "timeoutMs")
	s.InstructionLimit, s.HasInstructionLimit = optionalInt(lv, "instructionLimit")
	s.MemoryLimitBytes, s.HasMemoryLimitBytes = optionalInt(lv, "memoryLimitBytes")
	return s
}
