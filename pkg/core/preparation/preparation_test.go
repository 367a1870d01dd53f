package preparation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cabecera/ing-software-caba-itas/pkg/core/model"
)

func TestPercentage(t *testing.T) {
	tests := []struct {
		done, total, expected int
	}{
		{0, 0, 0},
		{0, 4, 0},
		{1, 3, 33},
		{2, 3, 66},
		{3, 4, 75},
		{4, 4, 100},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, Percentage(tt.done, tt.total), "%d/%d", tt.done, tt.total)
	}
}

func TestSeed_OrdersByCatalogOrder(t *testing.T) {
	catalog := []model.PreparationTask{
		{ID: "t-2", Name: "Check appliances", Order: 2},
		{ID: "t-1", Name: "General cleaning", Order: 1},
	}

	tasks := Seed(catalog)

	require.Len(t, tasks, 2)
	assert.Equal(t, "t-1", tasks[0].TaskID)
	assert.Equal(t, "General cleaning", tasks[0].TaskName)
	assert.False(t, tasks[0].Completed)
	assert.Equal(t, "t-2", tasks[1].TaskID)
	// catalog itself is untouched
	assert.Equal(t, "t-2", catalog[0].ID)
}

func TestSeed_EmptyCatalog(t *testing.T) {
	tasks := Seed(nil)
	assert.Empty(t, tasks)
	assert.Equal(t, 0, RecordPercentage(model.PreparationRecord{Tasks: tasks}))
}

func TestDeriveStatus(t *testing.T) {
	assert.Equal(t, model.PreparationPending, DeriveStatus(model.PreparationPending, 0, false))
	assert.Equal(t, model.PreparationInProgress, DeriveStatus(model.PreparationPending, 1, false))
	assert.Equal(t, model.PreparationPending, DeriveStatus(model.PreparationInProgress, 0, false))
	assert.Equal(t, model.PreparationInProgress, DeriveStatus(model.PreparationPending, 4, false), "full progress still needs explicit completion")
	assert.Equal(t, model.PreparationHasIssues, DeriveStatus(model.PreparationInProgress, 2, true))
	assert.Equal(t, model.PreparationInProgress, DeriveStatus(model.PreparationHasIssues, 2, false))
	assert.Equal(t, model.PreparationCompleted, DeriveStatus(model.PreparationCompleted, 0, true))
}
