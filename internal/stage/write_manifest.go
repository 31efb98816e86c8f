package stage

import (
	"context"
	"path/filepath"
	"time"

	"github.com/flarebyte/folio-mirror/internal/manifest"
)

// ManifestDoc renders the run as a manifest document. File paths are
// relative to the run root.
func ManifestDoc(in Envelope, finished time.Time) map[string]any {
	doc := map[string]any{
		"folio":      in.Folio,
		"finishedAt": finished.Format(time.RFC3339),
		"summary": map[string]any{
			"discovered": in.Summary.Discovered,
			"written":    in.Summary.Written,
			"skipped":    in.Summary.Skipped,
			"failed":     in.Summary.Failed,
		},
	}
	if in.Meta != nil {
		if in.Meta.RunID != "" {
			doc["runId"] = in.Meta.RunID
		}
		if !in.Meta.StartedAt.IsZero() {
			doc["startedAt"] = in.Meta.StartedAt.Format(time.RFC3339)
		}
	}
	if in.Project != nil {
		doc["project"] = map[string]any{
			"id":           in.Project.ID,
			"name":         in.Project.Name,
			"matchedField": in.Project.MatchedField,
		}
	}
	root := ""
	if in.Folders != nil {
		root = in.Folders.Root
		doc["root"] = root
	}
	if in.Hierarchy != nil {
		stages := make([]any, 0, len(in.Hierarchy.Stages))
		for _, s := range in.Hierarchy.Stages {
			stages = append(stages, map[string]any{
				"id":       s.ID,
				"name":     s.Name,
				"sequence": s.Sequence,
				"tasks":    len(in.Hierarchy.TasksByStage[BucketKey(s.ID)]),
			})
		}
		doc["stages"] = stages
	}
	files := make([]any, 0, len(in.Files))
	for _, f := range in.Files {
		entry := map[string]any{
			"attachmentId": f.AttachmentID,
			"name":         f.Name,
			"outcome":      string(f.Outcome),
			"resource":     f.ResourceKind,
			"resourceId":   f.ResourceID,
		}
		if f.Path != "" {
			entry["path"] = relativeTo(root, f.Path)
			entry["bytes"] = f.Bytes
		}
		files = append(files, entry)
	}
	doc["files"] = files
	if len(in.Notices) > 0 {
		notices := make([]any, 0, len(in.Notices))
		for _, n := range in.Notices {
			notices = append(notices, map[string]any{
				"step":    n.Step,
				"subject": n.Subject,
				"message": n.Message,
			})
		}
		doc["notices"] = notices
	}
	return doc
}

func relativeTo(root, p string) string {
	if root == "" {
		return filepath.ToSlash(p)
	}
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(rel)
}

func writeManifestRunner(ctx context.Context, in Envelope, deps Deps) (Envelope, error) {
	if in.Meta == nil || !in.Meta.Manifest || in.Folders == nil {
		return in, nil
	}
	log := deps.logger()
	p, err := manifest.Write(deps.FS, in.Folders.Root, ManifestDoc(in, deps.now()))
	if err != nil {
		in.notify(log, StepWriteManifest, manifest.FileName, err)
		return in, nil
	}
	log.Info("manifest written", "path", p)
	return in, nil
}

func init() { Register(StepWriteManifest, writeManifestRunner) }
