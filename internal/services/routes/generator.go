package routes

import (
	"math"
	"strings"

	"github.com/BearBump/ShipDesk/internal/models"
)

var (
	fractions = [...]float64{0.0, 0.22, 0.55, 0.82, 1.0}
	fallback  = City{Key: "new york", Lat: 40.7128, Lng: -74.0060, Label: "New York, USA"}
)

// Lookup ищет город по вхождению ключа в текст без учёта регистра.
func Lookup(text string) (City, bool) {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return City{}, false
	}
	for _, c := range gazetteer {
		if strings.Contains(t, c.Key) {
			return c, true
		}
	}
	return City{}, false
}

// Generate строит пять точек линейной интерполяцией между городами (не геодезическая линия).
func Generate(originText, destinationText string) []models.Waypoint {
	o, ok := Lookup(originText)
	if !ok {
		o = fallback
		if originText != "" {
			o.Label = originText
		}
	}
	d, ok := Lookup(destinationText)
	if !ok {
		d = City{Lat: o.Lat + 10.0, Lng: o.Lng + 10.0, Label: "Destination"}
		if destinationText != "" {
			d.Label = destinationText
		}
	}

	labels := [...]string{
		"Origin Scan — " + o.Label,
		"Departed origin facility",
		"In transit — regional hub",
		"Arrived in destination country",
		"Destination Facility — " + d.Label,
	}

	out := make([]models.Waypoint, 0, len(fractions))
	for i, t := range fractions {
		out = append(out, models.Waypoint{
			Lat:   round6(lerp(o.Lat, d.Lat, t)),
			Lng:   round6(lerp(o.Lng, d.Lng, t)),
			Label: labels[i],
		})
	}
	return out
}

// ShouldRegenerate: маршрут пересчитывается только при обоих заданных концах
// и если его нет или сменился один из концов.
func ShouldRegenerate(prevOrigin, prevDestination, origin, destination string, route []models.Waypoint) bool {
	prevOrigin, prevDestination = strings.TrimSpace(prevOrigin), strings.TrimSpace(prevDestination)
	origin, destination = strings.TrimSpace(origin), strings.TrimSpace(destination)
	if origin == "" || destination == "" {
		return false
	}
	return len(route) == 0 || prevOrigin != origin || prevDestination != destination
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
