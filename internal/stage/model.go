package stage

import (
	"strconv"

	"github.com/flarebyte/folio-mirror/internal/odoo"
)

// Resource kinds used to scope attachment queries.
const (
	KindProject = odoo.ModelProject
	KindTask    = odoo.ModelTask
)

// NoStageBucket keys tasks without a stage reference.
const NoStageBucket = "none"

// Project is the record selected for the run.
type Project struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	// MatchedField is the identifying field that matched the folio.
	MatchedField string `json:"matchedField"`
	// MatchedValue is the candidate value the folio was found in.
	MatchedValue string `json:"matchedValue"`
}

// Stage is a phase of the project.
type Stage struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Sequence int    `json:"sequence"`
}

// Task is an active task of the project.
type Task struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Sequence int    `json:"sequence"`
	StageID  int64  `json:"stageId,omitempty"`
	HasStage bool   `json:"hasStage"`
}

// Bucket returns the key of the stage bucket the task belongs to.
func (t Task) Bucket() string {
	if !t.HasStage {
		return NoStageBucket
	}
	return BucketKey(t.StageID)
}

// BucketKey returns the bucket key for a stage id.
func BucketKey(stageID int64) string {
	return strconv.FormatInt(stageID, 10)
}

// Attachment is a file attached to a project or a task.
type Attachment struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType,omitempty"`
	Size     int64  `json:"size"`
	// Payload is the base64 text sent by the server.
	Payload string `json:"-"`
	// Raw holds bytes already decoded by the transport.
	Raw []byte `json:"-"`
}

// HasPayload reports whether the attachment carries inline content.
func (a Attachment) HasPayload() bool {
	return len(a.Raw) > 0 || a.Payload != ""
}

// Hierarchy is the ordered stage list and the tasks partitioned by stage.
type Hierarchy struct {
	Stages []Stage `json:"stages"`
	// Tasks keeps every task in query order.
	Tasks        []Task            `json:"tasks"`
	TasksByStage map[string][]Task `json:"tasksByStage"`
}

// StageKnown reports whether a bucket key names one of the project stages.
func (h Hierarchy) StageKnown(key string) bool {
	for _, s := range h.Stages {
		if BucketKey(s.ID) == key {
			return true
		}
	}
	return false
}

// Unplaced returns the tasks that have no folder among the project stages:
// unstaged tasks and tasks referencing a stage outside the project, in query
// order.
func (h Hierarchy) Unplaced() []Task {
	var out []Task
	for _, t := range h.Tasks {
		if !h.StageKnown(t.Bucket()) {
			out = append(out, t)
		}
	}
	return out
}

func stageFromRecord(r odoo.Record) Stage {
	return Stage{
		ID:       r.Int("id"),
		Name:     r.String("name"),
		Sequence: int(r.Int("sequence")),
	}
}

func taskFromRecord(r odoo.Record) Task {
	t := Task{
		ID:       r.Int("id"),
		Name:     r.String("name"),
		Sequence: int(r.Int("sequence")),
	}
	t.StageID, t.HasStage = r.Many2One("stage_id")
	return t
}

func attachmentFromRecord(r odoo.Record) Attachment {
	a := Attachment{
		ID:       r.Int("id"),
		Name:     r.String("name"),
		MimeType: r.String("mimetype"),
		Size:     r.Int("file_size"),
	}
	switch v := r["datas"].(type) {
	case string:
		a.Payload = v
	case []byte:
		a.Raw = v
	}
	return a
}
