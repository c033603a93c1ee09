package history

import (
	"strings"

	"github.com/BearBump/ShipDesk/internal/models"
)

type bucketRule struct {
	patterns []string
	bucket   models.Bucket
}

// Порядок правил значим: статус может содержать несколько подстрок, побеждает первое совпадение.
var bucketRules = []bucketRule{
	{patterns: []string{"delivered"}, bucket: models.BucketDelivered},
	{patterns: []string{"out for delivery"}, bucket: models.BucketOutForDelivery},
	{patterns: []string{"transit"}, bucket: models.BucketInTransit},
	{patterns: []string{"picked up"}, bucket: models.BucketPickedUp},
	{patterns: []string{"hold", "pending verification"}, bucket: models.BucketOnHold},
	{patterns: []string{"created"}, bucket: models.BucketCreated},
}

func Bucket(status string) models.Bucket {
	s := strings.ToLower(strings.TrimSpace(status))
	for _, r := range bucketRules {
		for _, p := range r.patterns {
			if strings.Contains(s, p) {
				return r.bucket
			}
		}
	}
	return models.BucketOther
}
