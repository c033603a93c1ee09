package history

import (
	"fmt"
	"strings"

	"github.com/BearBump/ShipDesk/internal/models"
)

const MilestoneCreated = "milestone_created"

type milestone struct {
	key         string
	location    string
	description string
}

var bucketMilestones = map[models.Bucket]milestone{
	models.BucketPickedUp:       {"milestone_picked_up", "Carrier Scan", "Shipment picked up"},
	models.BucketInTransit:      {"milestone_in_transit", "Transit Hub", "Shipment is in transit"},
	models.BucketOutForDelivery: {"milestone_out_for_delivery", "Destination Facility", "Out for delivery"},
	models.BucketDelivered:      {"milestone_delivered", "Delivered", "Shipment delivered successfully"},
	models.BucketOnHold:         {"milestone_on_hold", "Customs / Compliance", "Shipment placed on hold"},
}

// Reconcile дописывает вехи, которые положены отправлению в текущем статусе.
// Ключи вех глобальные: повторный заход в ту же стадию ничего не добавляет.
func (j *Journal) Reconcile(s *models.Shipment) bool {
	changed := j.AppendOnce(s, MilestoneCreated, "System", "Shipment record created")
	if m, ok := bucketMilestones[Bucket(s.Status)]; ok {
		if j.AppendOnce(s, m.key, m.location, m.description) {
			changed = true
		}
	}
	return changed
}

// NoteEstimateChange фиксирует смену ожидаемой даты доставки, по одному разу на каждое значение.
func (j *Journal) NoteEstimateChange(s *models.Shipment, oldEst, newEst string) bool {
	oldEst = strings.TrimSpace(oldEst)
	newEst = strings.TrimSpace(newEst)
	if oldEst == newEst {
		return false
	}
	if newEst == "" {
		return j.AppendOnce(s, "estimated_delivery:cleared", "Admin Update", "Estimated delivery cleared")
	}
	return j.AppendOnce(s, "estimated_delivery:"+newEst, "Admin Update", "Estimated delivery set: "+newEst)
}

// NoteStatusChange пишется обычным Append: вызывается ровно один раз на обновление.
func (j *Journal) NoteStatusChange(s *models.Shipment, oldStatus, newStatus string) bool {
	if oldStatus == newStatus {
		return false
	}
	prev := oldStatus
	if prev == "" {
		prev = "N/A"
	}
	j.Append(s, "Admin Update", fmt.Sprintf("Status updated: %s → %s", prev, newStatus))
	return true
}
