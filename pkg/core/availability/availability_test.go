package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cabecera/ing-software-caba-itas/pkg/core/model"
)

func day(n int) time.Time {
	return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n-1)
}

func ptr(t time.Time) *time.Time { return &t }

func readyCabin() model.Cabin {
	return model.Cabin{ID: "cabin-x", Name: "Cabin X", Status: model.CabinReady}
}

func TestCheck_NoReservationsOrMaintenance(t *testing.T) {
	res := Check(Query{Cabin: readyCabin(), Start: day(1), End: day(5)}, nil, nil)
	assert.True(t, res.Available)
	assert.Equal(t, ReasonNone, res.Reason)
}

func TestCheck_UnderMaintenanceFailsClosed(t *testing.T) {
	cabin := readyCabin()
	cabin.Status = model.CabinUnderMaintenance

	res := Check(Query{Cabin: cabin, Start: day(1), End: day(5)}, nil, nil)
	assert.False(t, res.Available)
	assert.Equal(t, ReasonUnderMaintenance, res.Reason)
	assert.Equal(t, "cabin-x", res.Ref, "no window known, the cabin is the reference")

	maintenance := []model.MaintenanceWindow{
		{ID: "m-late", CabinID: "cabin-x", ScheduledDate: day(20), Status: model.MaintenanceScheduled},
		{ID: "m-other", CabinID: "other", ScheduledDate: day(1), Status: model.MaintenanceInProgress},
		{ID: "m-early", CabinID: "cabin-x", ScheduledDate: day(2), Status: model.MaintenanceScheduled},
	}
	res = Check(Query{Cabin: cabin, Start: day(1), End: day(5)}, maintenance, nil)
	assert.Equal(t, "m-early", res.Ref)

	maintenance = append(maintenance, model.MaintenanceWindow{ID: "m-now", CabinID: "cabin-x", ScheduledDate: day(30), Status: model.MaintenanceInProgress})
	res = Check(Query{Cabin: cabin, Start: day(1), End: day(5)}, maintenance, nil)
	assert.Equal(t, "m-now", res.Ref)
}

func TestCheck_UnexecutedMaintenanceBlocksTail(t *testing.T) {
	maintenance := []model.MaintenanceWindow{
		{ID: "m-1", CabinID: "cabin-x", ScheduledDate: day(10), Status: model.MaintenanceScheduled},
	}

	blocked := Check(Query{Cabin: readyCabin(), Start: day(8), End: day(12)}, maintenance, nil)
	assert.False(t, blocked.Available)
	assert.Equal(t, ReasonMaintenanceWindow, blocked.Reason)
	assert.Equal(t, "m-1", blocked.Ref)

	before := Check(Query{Cabin: readyCabin(), Start: day(1), End: day(7)}, maintenance, nil)
	assert.True(t, before.Available)

	after := Check(Query{Cabin: readyCabin(), Start: day(20), End: day(22)}, maintenance, nil)
	assert.False(t, after.Available, "an un-executed window blocks every later stay")
}

func TestCheck_ExecutedMaintenanceBlocksFromExecutionDate(t *testing.T) {
	maintenance := []model.MaintenanceWindow{
		{ID: "m-1", CabinID: "cabin-x", ScheduledDate: day(3), ExecutionDate: ptr(day(10)), Status: model.MaintenanceInProgress},
	}

	assert.False(t, IsAvailable(Query{Cabin: readyCabin(), Start: day(9), End: day(11)}, maintenance, nil))
	assert.False(t, IsAvailable(Query{Cabin: readyCabin(), Start: day(1), End: day(4)}, maintenance, nil),
		"execution date after the stay still blocks it")
	assert.True(t, IsAvailable(Query{Cabin: readyCabin(), Start: day(11), End: day(13)}, maintenance, nil))
}

func TestCheck_InactiveMaintenanceIgnored(t *testing.T) {
	maintenance := []model.MaintenanceWindow{
		{ID: "m-1", CabinID: "cabin-x", ScheduledDate: day(2), Status: model.MaintenanceDone, ExecutionDate: ptr(day(2))},
		{ID: "m-2", CabinID: "cabin-x", ScheduledDate: day(2), Status: model.MaintenanceCancelled},
		{ID: "m-3", CabinID: "other", ScheduledDate: day(2), Status: model.MaintenanceScheduled},
	}

	assert.True(t, IsAvailable(Query{Cabin: readyCabin(), Start: day(1), End: day(5)}, maintenance, nil))
}

func TestCheck_ReservationOverlap(t *testing.T) {
	existing := []model.Reservation{
		{ID: "r-1", CabinID: "cabin-x", Start: day(10), End: day(14), Status: model.ReservationConfirmed},
	}

	tests := []struct {
		name      string
		start     int
		end       int
		available bool
	}{
		{"fully before", 1, 8, true},
		{"ends on existing start", 6, 10, false},
		{"starts on existing end", 14, 16, false},
		{"inside", 11, 12, false},
		{"covers", 9, 15, false},
		{"day after existing end", 15, 17, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Check(Query{Cabin: readyCabin(), Start: day(tt.start), End: day(tt.end)}, nil, existing)
			assert.Equal(t, tt.available, res.Available)
			if !tt.available {
				assert.Equal(t, ReasonReservationOverlap, res.Reason)
				assert.Equal(t, "r-1", res.Ref)
			}
		})
	}
}

func TestCheck_OnlyPendingAndConfirmedHoldTheCabin(t *testing.T) {
	statuses := map[model.ReservationStatus]bool{
		model.ReservationPending:   false,
		model.ReservationConfirmed: false,
		model.ReservationCancelled: true,
		model.ReservationCompleted: true,
	}

	for status, available := range statuses {
		t.Run(string(status), func(t *testing.T) {
			existing := []model.Reservation{
				{ID: "r-1", CabinID: "cabin-x", Start: day(3), End: day(6), Status: status},
			}
			assert.Equal(t, available, IsAvailable(Query{Cabin: readyCabin(), Start: day(4), End: day(5)}, nil, existing))
		})
	}
}

func TestCheck_ExcludesReservationBeingMoved(t *testing.T) {
	existing := []model.Reservation{
		{ID: "r-1", CabinID: "cabin-x", Start: day(3), End: day(6), Status: model.ReservationConfirmed},
	}

	q := Query{Cabin: readyCabin(), Start: day(4), End: day(8), ExcludeReservationID: "r-1"}
	assert.True(t, IsAvailable(q, nil, existing))

	q.ExcludeReservationID = ""
	assert.False(t, IsAvailable(q, nil, existing))
}

func TestCheck_IgnoresOtherCabins(t *testing.T) {
	existing := []model.Reservation{
		{ID: "r-1", CabinID: "cabin-y", Start: day(3), End: day(6), Status: model.ReservationConfirmed},
	}
	assert.True(t, IsAvailable(Query{Cabin: readyCabin(), Start: day(3), End: day(6)}, nil, existing))
}
