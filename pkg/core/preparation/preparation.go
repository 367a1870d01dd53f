package preparation

import (
	"sort"

	"github.com/cabecera/ing-software-caba-itas/pkg/core/model"
)

// Seed builds one open TaskCompletion per catalog task, in catalog order
func Seed(catalog []model.PreparationTask) []model.TaskCompletion {
	tasks := make([]model.PreparationTask, len(catalog))
	copy(tasks, catalog)
	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].Order < tasks[j].Order })

	completions := make([]model.TaskCompletion, 0, len(tasks))
	for _, t := range tasks {
		completions = append(completions, model.TaskCompletion{
			TaskID:   t.ID,
			TaskName: t.Name,
			Order:    t.Order,
		})
	}
	return completions
}

// Count returns completed and total task counts
func Count(tasks []model.TaskCompletion) (done, total int) {
	for _, t := range tasks {
		if t.Completed {
			done++
		}
	}
	return done, len(tasks)
}

// Percentage is done/total rounded down to a whole percent; 0 when there are no tasks
func Percentage(done, total int) int {
	if total <= 0 {
		return 0
	}
	return done * 100 / total
}

// RecordPercentage is Percentage over a record's tasks
func RecordPercentage(r model.PreparationRecord) int {
	return Percentage(Count(r.Tasks))
}

// DeriveStatus recomputes a record's status after a progress change.
// Completed is sticky; open escalations linked to the record hold it in has_issues.
func DeriveStatus(current model.PreparationStatus, done int, hasOpenIssues bool) model.PreparationStatus {
	switch {
	case current == model.PreparationCompleted:
		return model.PreparationCompleted
	case hasOpenIssues:
		return model.PreparationHasIssues
	case done == 0:
		return model.PreparationPending
	default:
		return model.PreparationInProgress
	}
}
