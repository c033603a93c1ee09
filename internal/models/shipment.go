package models

// Статусы, которые ядро выставляет само (остальные задаёт администратор свободным текстом).
const (
	StatusOnHold    = "On Hold"
	StatusInTransit = "In Transit"
	StatusCustom    = "Custom Status"
)

// Bucket — каноническая стадия жизненного цикла, выведенная из свободного статуса.
type Bucket string

const (
	BucketCreated        Bucket = "created"
	BucketPickedUp       Bucket = "picked_up"
	BucketInTransit      Bucket = "in_transit"
	BucketOutForDelivery Bucket = "out_for_delivery"
	BucketOnHold         Bucket = "on_hold"
	BucketDelivered      Bucket = "delivered"
	BucketOther          Bucket = "other"
)

type Shipment struct {
	TrackingID           string     `json:"tracking_id"`
	Status               string     `json:"status"`
	Origin               string     `json:"origin,omitempty"`
	Destination          string     `json:"destination,omitempty"`
	Route                []Waypoint `json:"route"`
	CurrentLocation      *Location  `json:"current_location,omitempty"`
	EstimatedDelivery    *string    `json:"estimated_delivery"`
	EstimatedDeliveryTBD bool       `json:"estimated_delivery_tbd"`
	PackageDetails       string     `json:"package_details,omitempty"`
	OwnerEmail           string     `json:"owner_email,omitempty"`
	Events               []Event    `json:"events"`
	AutoEventKeys        []string   `json:"auto_event_keys"`
	Fees                 *Fee       `json:"fees"`
}

// NewShipment создаёт пустую запись под внешний трек-номер.
func NewShipment(trackingID string) *Shipment {
	return &Shipment{
		TrackingID:    trackingID,
		Route:         []Waypoint{},
		Events:        []Event{},
		AutoEventKeys: []string{},
	}
}

// Clone делает глубокую копию, чтобы снапшоты из хранилища не делили память с изменяемой записью.
func (s *Shipment) Clone() *Shipment {
	if s == nil {
		return nil
	}
	c := *s
	c.Route = append([]Waypoint{}, s.Route...)
	c.Events = append([]Event{}, s.Events...)
	c.AutoEventKeys = append([]string{}, s.AutoEventKeys...)
	if s.CurrentLocation != nil {
		loc := *s.CurrentLocation
		c.CurrentLocation = &loc
	}
	if s.EstimatedDelivery != nil {
		est := *s.EstimatedDelivery
		c.EstimatedDelivery = &est
	}
	if s.Fees != nil {
		f := *s.Fees
		if s.Fees.Amount != nil {
			a := *s.Fees.Amount
			f.Amount = &a
		}
		c.Fees = &f
	}
	return &c
}

// HasAutoEventKey сообщает, была ли уже записана веха с таким ключом.
func (s *Shipment) HasAutoEventKey(key string) bool {
	for _, k := range s.AutoEventKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Event: запись журнала, после добавления не меняется.
type Event struct {
	Date        string `json:"date"`
	Location    string `json:"location"`
	Description string `json:"description"`
}

type Waypoint struct {
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Label string  `json:"label"`
}

type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}
