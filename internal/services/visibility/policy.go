package visibility

import (
	"github.com/BearBump/ShipDesk/internal/models"
	"github.com/BearBump/ShipDesk/internal/services/history"
)

const (
	StatusHeldRedacted     = "Package held for customs fees — log in to continue and take further action"
	StatusPendingVerify    = "Payment Submitted - Pending Verification"
	StatusOnHoldForPayment = "On Hold for Customs/Taxes Payment"
	EstimateTBDPlaceholder = "Date will be made available when hold clears"
)

// FeeView — то, что зритель видит о сборе. Для посторонних только факт наличия.
type FeeView struct {
	Exists bool        `json:"exists"`
	Paid   bool        `json:"paid"`
	Detail *models.Fee `json:"detail,omitempty"`
}

type View struct {
	TrackingID        string            `json:"tracking_id"`
	Status            string            `json:"status"`
	Bucket            models.Bucket     `json:"bucket"`
	EstimatedDelivery *string           `json:"estimated_delivery"`
	Origin            string            `json:"origin,omitempty"`
	Destination       string            `json:"destination,omitempty"`
	PackageDetails    string            `json:"package_details,omitempty"`
	Route             []models.Waypoint `json:"route"`
	CurrentLocation   *models.Location  `json:"current_location,omitempty"`
	Events            []models.Event    `json:"events"`
	Fees              *FeeView          `json:"fees,omitempty"`
	OwnerEmail        string            `json:"owner_email,omitempty"`
	LoggedIn          bool              `json:"logged_in"`
	IsOwner           bool              `json:"is_owner"`
	IsAdmin           bool              `json:"is_admin"`
}

// CanViewSensitive: администратор или записанный владелец.
func CanViewSensitive(viewer *models.Identity, s *models.Shipment) bool {
	return viewer.IsAdmin() || viewer.Owns(s.OwnerEmail)
}

// Render строит представление для зрителя. Состояние не меняет.
func Render(s *models.Shipment, viewer *models.Identity) View {
	sensitive := CanViewSensitive(viewer, s)

	v := View{
		TrackingID:        s.TrackingID,
		Status:            s.Status,
		Bucket:            history.Bucket(s.Status),
		EstimatedDelivery: s.EstimatedDelivery,
		Origin:            s.Origin,
		Destination:       s.Destination,
		PackageDetails:    s.PackageDetails,
		Route:             s.Route,
		CurrentLocation:   s.CurrentLocation,
		Events:            history.SortEvents(s.Events),
		LoggedIn:          viewer.LoggedIn(),
		IsOwner:           viewer.Owns(s.OwnerEmail),
		IsAdmin:           viewer.IsAdmin(),
	}
	if v.Route == nil {
		v.Route = []models.Waypoint{}
	}
	if v.Status == "" {
		v.Status = "Unknown"
	}

	switch f := s.Fees; {
	case f != nil && !f.Paid && !sensitive:
		v.Status = StatusHeldRedacted
		v.Fees = &FeeView{Exists: true, Paid: false}
	case f != nil && !f.Paid:
		if f.PaymentSubmitted {
			v.Status = StatusPendingVerify
		} else {
			v.Status = StatusOnHoldForPayment
		}
		v.Fees = feeDetail(f)
	case f != nil && sensitive:
		v.Fees = feeDetail(f)
	}

	if s.EstimatedDeliveryTBD {
		placeholder := EstimateTBDPlaceholder
		v.EstimatedDelivery = &placeholder
	}
	if sensitive {
		v.OwnerEmail = s.OwnerEmail
	}
	return v
}

func feeDetail(f *models.Fee) *FeeView {
	c := *f
	return &FeeView{Exists: true, Paid: f.Paid, Detail: &c}
}
