package stage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
)

const bytesPerMB = 1024 * 1024

// replicate lists the attachments of one resource and writes them into
// folder. Listing and writing failures are absorbed as notices.
func replicate(ctx context.Context, in *Envelope, deps Deps, step, kind string, id int64, folder string) {
	log := deps.logger()
	atts, err := ListAttachments(ctx, deps.Directory, kind, id)
	if err != nil {
		in.notify(log, step, fmt.Sprintf("attachments of %s %d", kind, id), err)
		return
	}
	in.Summary.Discovered += len(atts)
	if len(atts) == 0 {
		log.Info("no attachments", "resource", kind, "id", id)
		return
	}
	for _, att := range atts {
		res := WriteAttachment(deps.FS, att, folder)
		in.record(kind, id, att, res)
		logWrite(log, in, step, att, res)
	}
}

func logWrite(log *slog.Logger, in *Envelope, step string, att Attachment, res WriteResult) {
	switch res.Outcome {
	case OutcomeWritten:
		log.Info("downloaded", "name", filepath.Base(res.Path),
			"mb", fmt.Sprintf("%.2f", float64(res.Bytes)/bytesPerMB))
	case OutcomeSkipped:
		log.Warn("attachment without data", "name", att.Name, "id", att.ID)
	case OutcomeFailed:
		in.notify(log, step, "attachment "+att.Name, res.Err)
	}
}

func replicateProjectRunner(ctx context.Context, in Envelope, deps Deps) (Envelope, error) {
	if in.Project == nil {
		return Envelope{}, ErrNoProject
	}
	if in.Folders == nil {
		return Envelope{}, errors.New("replicate-project: folders not synthesized")
	}
	deps.logger().Info("project attachments", "project", in.Project.Name)
	replicate(ctx, &in, deps, StepReplicateProject, KindProject, in.Project.ID, in.Folders.Project)
	return in, nil
}

func replicateTasksRunner(ctx context.Context, in Envelope, deps Deps) (Envelope, error) {
	if in.Project == nil {
		return Envelope{}, ErrNoProject
	}
	if in.Folders == nil {
		return Envelope{}, errors.New("replicate-tasks: folders not synthesized")
	}
	if in.Hierarchy == nil {
		return in, nil
	}
	log := deps.logger()
	h := *in.Hierarchy
	for _, s := range h.Stages {
		log.Info("stage", "name", s.Name)
		tasks := h.TasksByStage[BucketKey(s.ID)]
		if len(tasks) == 0 {
			log.Info("no tasks in stage", "stage", s.Name)
			continue
		}
		for _, t := range tasks {
			replicateTask(ctx, &in, deps, in.Folders.Stages[s.ID], t)
		}
	}

	unplaced := h.Unplaced()
	if len(unplaced) == 0 {
		return in, nil
	}
	if in.unstagedPolicy() == UnstagedOmit || in.Folders.Unstaged == "" {
		for _, t := range unplaced {
			in.notify(log, StepReplicateTasks, "task "+t.Name, errors.New("task has no stage folder; attachments not mirrored"))
		}
		return in, nil
	}
	log.Info("tasks without stage", "count", len(unplaced))
	for _, t := range unplaced {
		replicateTask(ctx, &in, deps, in.Folders.Unstaged, t)
	}
	return in, nil
}

func replicateTask(ctx context.Context, in *Envelope, deps Deps, stageFolder string, t Task) {
	log := deps.logger()
	log.Info("task", "name", t.Name)
	folder := filepath.Join(stageFolder, pathComponent(t.Name, "task", t.ID))
	if err := mkdir(deps.FS, folder); err != nil {
		in.notify(log, StepReplicateTasks, "task "+t.Name, err)
		return
	}
	replicate(ctx, in, deps, StepReplicateTasks, KindTask, t.ID, folder)
}

func init() {
	Register(StepReplicateProject, replicateProjectRunner)
	Register(StepReplicateTasks, replicateTasksRunner)
}
