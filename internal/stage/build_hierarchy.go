package stage

import (
	"context"
	"sort"

	"github.com/flarebyte/folio-mirror/internal/odoo"
)

// FetchStages returns the stages linked to the project, sorted by sequence.
// Stages with the same sequence keep the order the server returned.
func FetchStages(ctx context.Context, dir Directory, projectID int64) ([]Stage, error) {
	rows, err := dir.SearchRead(ctx, odoo.ModelStage,
		odoo.Domain{odoo.Cond("project_ids", "in", []any{projectID})},
		[]string{"id", "name", "sequence"})
	if err != nil {
		return nil, err
	}
	stages := make([]Stage, 0, len(rows))
	for _, row := range rows {
		stages = append(stages, stageFromRecord(row))
	}
	SortStages(stages)
	return stages, nil
}

// SortStages sorts ascending by sequence, stable on ties.
func SortStages(stages []Stage) {
	sort.SliceStable(stages, func(i, j int) bool {
		return stages[i].Sequence < stages[j].Sequence
	})
}

// FetchTasks returns the active tasks of the project in server order.
func FetchTasks(ctx context.Context, dir Directory, projectID int64) ([]Task, error) {
	rows, err := dir.SearchRead(ctx, odoo.ModelTask,
		odoo.Domain{
			odoo.Cond("project_id", "=", projectID),
			odoo.Cond("active", "=", true),
		},
		[]string{"id", "name", "stage_id", "sequence"})
	if err != nil {
		return nil, err
	}
	tasks := make([]Task, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, taskFromRecord(row))
	}
	return tasks, nil
}

// PartitionTasks groups tasks by stage bucket, keeping their relative order.
func PartitionTasks(tasks []Task) map[string][]Task {
	out := map[string][]Task{}
	for _, t := range tasks {
		k := t.Bucket()
		out[k] = append(out[k], t)
	}
	return out
}

// BuildHierarchy fetches the stages and tasks of project. A failed query
// leaves its part empty and is returned next to the usable hierarchy.
func BuildHierarchy(ctx context.Context, dir Directory, project Project) (h Hierarchy, stagesErr, tasksErr error) {
	h.Stages, stagesErr = FetchStages(ctx, dir, project.ID)
	if stagesErr != nil {
		h.Stages = []Stage{}
	}
	h.Tasks, tasksErr = FetchTasks(ctx, dir, project.ID)
	if tasksErr != nil {
		h.Tasks = []Task{}
	}
	h.TasksByStage = PartitionTasks(h.Tasks)
	return h, stagesErr, tasksErr
}

func buildHierarchyRunner(ctx context.Context, in Envelope, deps Deps) (Envelope, error) {
	if in.Project == nil {
		return Envelope{}, ErrNoProject
	}
	log := deps.logger()
	h, stagesErr, tasksErr := BuildHierarchy(ctx, deps.Directory, *in.Project)
	if stagesErr != nil {
		in.notify(log, StepBuildHierarchy, "stages", stagesErr)
	}
	if tasksErr != nil {
		in.notify(log, StepBuildHierarchy, "tasks", tasksErr)
	}
	log.Info("stages found", "count", len(h.Stages))
	for _, s := range h.Stages {
		log.Debug("stage", "name", s.Name, "sequence", s.Sequence)
	}
	log.Info("tasks found", "count", len(h.Tasks))

	in.Hierarchy = &h
	return in, nil
}

func init() { Register(StepBuildHierarchy, buildHierarchyRunner) }
