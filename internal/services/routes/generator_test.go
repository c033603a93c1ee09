package routes

import (
	"testing"

	"github.com/BearBump/ShipDesk/internal/models"
	"github.com/stretchr/testify/require"
)

func TestGenerate_NewYorkTokyo(t *testing.T) {
	a := Generate("New York", "Tokyo")
	b := Generate("New York", "Tokyo")
	require.Equal(t, a, b)
	require.Len(t, a, 5)

	require.Equal(t, "Origin Scan — New York, USA", a[0].Label)
	require.Equal(t, "Departed origin facility", a[1].Label)
	require.Equal(t, "In transit — regional hub", a[2].Label)
	require.Equal(t, "Arrived in destination country", a[3].Label)
	require.Equal(t, "Destination Facility — Tokyo, Japan", a[4].Label)

	require.Equal(t, 40.7128, a[0].Lat)
	require.Equal(t, -74.006, a[0].Lng)
	require.Equal(t, 35.6762, a[4].Lat)
	require.Equal(t, 139.6503, a[4].Lng)
	// 40.7128 + (35.6762-40.7128)*0.55
	require.InDelta(t, 37.94267, a[2].Lat, 1e-6)
}

func TestGenerate_Fallbacks(t *testing.T) {
	r := Generate("Atlantis", "")
	require.Equal(t, "Origin Scan — Atlantis", r[0].Label)
	require.Equal(t, "Destination Facility — Destination", r[4].Label)
	require.Equal(t, 50.7128, r[4].Lat)
	require.Equal(t, -64.006, r[4].Lng)

	r = Generate("", "somewhere in Paris")
	require.Equal(t, "Origin Scan — New York, USA", r[0].Label)
	require.Equal(t, "Destination Facility — Paris, France", r[4].Label)
}

func TestLookup_FirstMatchWins(t *testing.T) {
	c, ok := Lookup("Warehouse between MIAMI and Chicago")
	require.True(t, ok)
	require.Equal(t, "Miami, USA", c.Label)

	_, ok = Lookup("   ")
	require.False(t, ok)
}

func TestShouldRegenerate(t *testing.T) {
	route := []models.Waypoint{{Lat: 1, Lng: 2, Label: "x"}}

	require.True(t, ShouldRegenerate("New York", "Tokyo", "New York", "Paris", route))
	require.False(t, ShouldRegenerate("New York", "Tokyo", "New York", "Tokyo", route))
	require.True(t, ShouldRegenerate("New York", "Tokyo", "New York", "Tokyo", nil))
	require.False(t, ShouldRegenerate("", "", "New York", "", nil))
	require.False(t, ShouldRegenerate("", "", "", "Tokyo", nil))
	require.True(t, ShouldRegenerate("", "", "London", "Tokyo", route))
}
