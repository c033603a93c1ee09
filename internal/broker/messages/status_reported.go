package messages

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// StatusReported: скан перевозчика из внешнего фида.
type StatusReported struct {
	TrackingID      string    `json:"tracking_id"`
	Status          string    `json:"status"`
	Location        string    `json:"location,omitempty"`
	CurrentLocation *Point    `json:"current_location,omitempty"`
	ReportedAt      time.Time `json:"reported_at"`
}

type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

var ErrBadReport = errors.New("bad status report")

func DecodeStatusReported(b []byte) (StatusReported, error) {
	var r StatusReported
	if err := json.Unmarshal(b, &r); err != nil {
		return StatusReported{}, errors.Wrap(ErrBadReport, err.Error())
	}
	r.TrackingID = strings.TrimSpace(r.TrackingID)
	r.Status = strings.TrimSpace(r.Status)
	if r.TrackingID == "" || r.Status == "" {
		return StatusReported{}, errors.Wrap(ErrBadReport, "tracking_id and status are required")
	}
	return r, nil
}
