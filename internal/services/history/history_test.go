package history

import (
	"testing"
	"time"

	"github.com/BearBump/ShipDesk/internal/models"
	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time {
	return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
}

func TestBucket_Precedence(t *testing.T) {
	cases := map[string]models.Bucket{
		"Delivered":                         models.BucketDelivered,
		"  out FOR delivery ":               models.BucketOutForDelivery,
		"In Transit":                        models.BucketInTransit,
		"On Hold In Transit":                models.BucketInTransit,
		"Picked Up":                         models.BucketPickedUp,
		"On Hold":                           models.BucketOnHold,
		"Payment Pending Verification":      models.BucketOnHold,
		"Created":                           models.BucketCreated,
		"Label Created":                     models.BucketCreated,
		"Undelivered - returned to transit": models.BucketDelivered,
		"At warehouse":                      models.BucketOther,
		"":                                  models.BucketOther,
	}
	for status, want := range cases {
		require.Equal(t, want, Bucket(status), status)
	}
}

func TestAppendOnce_RecordsKeyWithEvent(t *testing.T) {
	j := NewJournal(fixedNow)
	s := models.NewShipment("T1")

	require.True(t, j.AppendOnce(s, "k", "Loc", "Desc"))
	require.False(t, j.AppendOnce(s, "k", "Loc", "Desc"))
	require.False(t, j.AppendOnce(s, "", "Loc", "Desc"))

	require.Len(t, s.Events, 1)
	require.Equal(t, []string{"k"}, s.AutoEventKeys)
	require.Equal(t, "2026-03-14 09:30", s.Events[0].Date)
}

func TestReconcile_IdempotentForAllStatuses(t *testing.T) {
	j := NewJournal(fixedNow)
	for _, status := range []string{"Created", "Picked Up", "In Transit", "Out for Delivery", "Delivered", "On Hold", "Weird"} {
		s := models.NewShipment("T")
		s.Status = status
		require.True(t, j.Reconcile(s), status)
		n := len(s.Events)
		require.False(t, j.Reconcile(s), status)
		require.Len(t, s.Events, n, status)
	}
}

func TestReconcile_OnHoldMilestoneOneShot(t *testing.T) {
	j := NewJournal(fixedNow)
	s := models.NewShipment("T")

	for _, status := range []string{"On Hold", "In Transit", "On Hold"} {
		s.Status = status
		j.Reconcile(s)
	}

	holds := 0
	for _, e := range s.Events {
		if e.Description == "Shipment placed on hold" {
			holds++
		}
	}
	require.Equal(t, 1, holds)
	require.Len(t, s.Events, 3)
	require.Equal(t, "Shipment record created", s.Events[0].Description)
	require.Equal(t, "Customs / Compliance", s.Events[1].Location)
	require.Equal(t, "Transit Hub", s.Events[2].Location)
}

func TestNoteEstimateChange(t *testing.T) {
	j := NewJournal(fixedNow)
	s := models.NewShipment("T")

	require.False(t, j.NoteEstimateChange(s, " 2026-04-01", "2026-04-01 "))
	require.True(t, j.NoteEstimateChange(s, "", "2026-04-01"))
	require.True(t, j.NoteEstimateChange(s, "2026-04-01", "2026-04-05"))
	// возврат к уже записанному значению не журналируется повторно
	require.False(t, j.NoteEstimateChange(s, "2026-04-05", "2026-04-01"))
	require.True(t, j.NoteEstimateChange(s, "2026-04-01", ""))

	require.Len(t, s.Events, 3)
	require.Equal(t, "Estimated delivery set: 2026-04-01", s.Events[0].Description)
	require.Equal(t, "Estimated delivery cleared", s.Events[2].Description)
}

func TestNoteStatusChange_NotKeyed(t *testing.T) {
	j := NewJournal(fixedNow)
	s := models.NewShipment("T")

	require.False(t, j.NoteStatusChange(s, "On Hold", "On Hold"))
	require.True(t, j.NoteStatusChange(s, "", "Created"))
	require.True(t, j.NoteStatusChange(s, "Created", "On Hold"))
	require.True(t, j.NoteStatusChange(s, "On Hold", "Created"))
	require.True(t, j.NoteStatusChange(s, "Created", "On Hold"))

	require.Len(t, s.Events, 4)
	require.Empty(t, s.AutoEventKeys)
	require.Equal(t, "Status updated: N/A → Created", s.Events[0].Description)
	require.Equal(t, "Admin Update", s.Events[0].Location)
}

func TestSortEvents_UnparseableLast(t *testing.T) {
	in := []models.Event{
		{Date: "garbage", Description: "bad1"},
		{Date: "2026-03-02 10:00", Description: "b"},
		{Date: "", Description: "bad2"},
		{Date: "2026-03-01 10:00", Description: "a"},
	}
	out := SortEvents(in)
	require.Equal(t, "a", out[0].Description)
	require.Equal(t, "b", out[1].Description)
	require.Equal(t, "bad1", out[2].Description)
	require.Equal(t, "bad2", out[3].Description)
	// исходный журнал не тронут
	require.Equal(t, "bad1", in[0].Description)
}
