package stage

import "time"

// Unstaged task policies.
const (
	UnstagedFolder = "folder"
	UnstagedOmit   = "omit"
)

// Meta holds the run settings; it is set once by the caller.
type Meta struct {
	RunID       string            `json:"runId,omitempty"`
	StartedAt   time.Time         `json:"startedAt"`
	FolioFields []FieldDescriptor `json:"folioFields,omitempty"`
	Unstaged    string            `json:"unstaged,omitempty"`
	Manifest    bool              `json:"manifest,omitempty"`
	LuaSandbox  *LuaSandbox       `json:"luaSandbox,omitempty"`
}

// Envelope is the run context threaded through every step. Each step reads
// what earlier steps produced and returns an updated copy.
// Field order is stable to keep JSON deterministic in tests.
type Envelope struct {
	Folio     string         `json:"folio"`
	Meta      *Meta          `json:"meta,omitempty"`
	Project   *Project       `json:"project,omitempty"`
	Attempts  []FieldAttempt `json:"attempts,omitempty"`
	Hierarchy *Hierarchy     `json:"hierarchy,omitempty"`
	Folders   *Folders       `json:"folders,omitempty"`
	Summary   Summary        `json:"summary"`
	Files     []FileResult   `json:"files,omitempty"`
	Notices   []Notice       `json:"notices,omitempty"`
}

// Summary counts attachments over the run.
type Summary struct {
	Discovered int `json:"discovered"`
	Written    int `json:"written"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

// FileResult is the outcome of one attachment.
type FileResult struct {
	ResourceKind string  `json:"resourceKind"`
	ResourceID   int64   `json:"resourceId"`
	AttachmentID int64   `json:"attachmentId"`
	Name         string  `json:"name"`
	MimeType     string  `json:"mimeType,omitempty"`
	Outcome      Outcome `json:"outcome"`
	Path         string  `json:"path,omitempty"`
	Bytes        int     `json:"bytes,omitempty"`
}

func (e *Envelope) record(kind string, resID int64, att Attachment, res WriteResult) {
	e.Files = append(e.Files, FileResult{
		ResourceKind: kind,
		ResourceID:   resID,
		AttachmentID: att.ID,
		Name:         att.Name,
		MimeType:     att.MimeType,
		Outcome:      res.Outcome,
		Path:         res.Path,
		Bytes:        res.Bytes,
	})
	switch res.Outcome {
	case OutcomeWritten:
		e.Summary.Written++
	case OutcomeSkipped:
		e.Summary.Skipped++
	case OutcomeFailed:
		e.Summary.Failed++
	}
}

func (e Envelope) unstagedPolicy() string {
	if e.Meta == nil || e.Meta.Unstaged == "" {
		return UnstagedFolder
	}
	return e.Meta.Unstaged
}

func (e Envelope) sandbox() LuaSandbox {
	if e.Meta == nil || e.Meta.LuaSandbox == nil {
		return DefaultLuaSandbox()
	}
	return *e.Meta.LuaSandbox
}

func (e Envelope) folioFields() []FieldDescriptor {
	if e.Meta == nil || len(e.Meta.FolioFields) == 0 {
		return DefaultFolioFields()
	}
	return e.Meta.FolioFields
}
