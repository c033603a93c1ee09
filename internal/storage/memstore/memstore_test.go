package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/BearBump/ShipDesk/internal/models"
	"github.com/stretchr/testify/require"
)

func TestStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	st := New()

	sh := models.NewShipment("A")
	sh.OwnerEmail = "u@x.io"
	require.NoError(t, st.PutShipment(ctx, sh))
	sh.Status = "mutated after put"

	got, err := st.GetShipment(ctx, "A")
	require.NoError(t, err)
	require.Empty(t, got.Status)

	got.Events = append(got.Events, models.Event{Description: "local"})
	again, _ := st.GetShipment(ctx, "A")
	require.Empty(t, again.Events)
}

func TestStore_ListsAndDelete(t *testing.T) {
	ctx := context.Background()
	st := New()
	for _, id := range []string{"B", "A", "C"} {
		sh := models.NewShipment(id)
		if id != "C" {
			sh.OwnerEmail = "Owner@x.io"
		}
		require.NoError(t, st.PutShipment(ctx, sh))
	}

	all, err := st.ListShipments(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "A", all[0].TrackingID)

	mine, err := st.ListShipmentsByOwner(ctx, "owner@x.io ")
	require.NoError(t, err)
	require.Len(t, mine, 2)

	require.NoError(t, st.DeleteShipment(ctx, "A"))
	_, err = st.GetShipment(ctx, "A")
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestStore_ShipmentAndThreadTogether(t *testing.T) {
	ctx := context.Background()
	st := New()

	_, err := st.GetThread(ctx, "A")
	require.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, st.PutShipmentAndThread(ctx, models.NewShipment("A"), models.NewChatThread("A", "u@x.io")))
	th, err := st.GetThread(ctx, "A")
	require.NoError(t, err)
	require.Equal(t, "u@x.io", th.OwnerEmail)

	threads, err := st.ListThreadsByOwner(ctx, "U@X.IO")
	require.NoError(t, err)
	require.Len(t, threads, 1)
}

func TestWatermarks(t *testing.T) {
	ctx := context.Background()
	w := NewWatermarks()

	lr, err := w.LastRead(ctx, "u@x.io")
	require.NoError(t, err)
	require.Empty(t, lr)

	require.NoError(t, w.MarkRead(ctx, "u@x.io", "A", time.Unix(500, 0)))
	lr, _ = w.LastRead(ctx, "u@x.io")
	require.Equal(t, map[string]int64{"A": 500}, lr)
}
