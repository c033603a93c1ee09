package visibility

import (
	"testing"

	"github.com/BearBump/ShipDesk/internal/models"
	"github.com/stretchr/testify/require"
)

func heldShipment() *models.Shipment {
	s := models.NewShipment("GSE-7")
	s.Status = "On Hold"
	s.OwnerEmail = "Owner@Example.com"
	amount := 150.0
	s.Fees = &models.Fee{Amount: &amount, Reason: "Customs and Taxes"}
	return s
}

var (
	owner    = &models.Identity{Email: "owner@example.com", Role: models.RoleUser, Active: true}
	stranger = &models.Identity{Email: "other@example.com", Role: models.RoleUser, Active: true}
	admin    = &models.Identity{Email: "admin@example.com", Role: models.RoleAdmin, Active: true}
)

func TestRender_UnpaidFee_RedactedForNonOwner(t *testing.T) {
	s := heldShipment()
	for _, viewer := range []*models.Identity{nil, stranger, {Email: "owner@example.com", Role: models.RoleUser, Active: false}} {
		v := Render(s, viewer)
		require.Equal(t, StatusHeldRedacted, v.Status)
		require.NotNil(t, v.Fees)
		require.True(t, v.Fees.Exists)
		require.False(t, v.Fees.Paid)
		require.Nil(t, v.Fees.Detail)
		require.Empty(t, v.OwnerEmail)
		require.False(t, v.IsOwner)
	}
}

func TestRender_UnpaidFee_OwnerAndAdminSeeDetail(t *testing.T) {
	s := heldShipment()

	v := Render(s, owner)
	require.True(t, v.IsOwner)
	require.Equal(t, StatusOnHoldForPayment, v.Status)
	require.NotNil(t, v.Fees.Detail)
	require.InDelta(t, 150.0, *v.Fees.Detail.Amount, 1e-9)
	require.Equal(t, "Owner@Example.com", v.OwnerEmail)

	s.Fees.PaymentSubmitted = true
	v = Render(s, admin)
	require.True(t, v.IsAdmin)
	require.Equal(t, StatusPendingVerify, v.Status)
}

func TestRender_PaidFee(t *testing.T) {
	s := heldShipment()
	s.Status = "In Transit"
	s.Fees.Paid = true

	v := Render(s, stranger)
	require.Equal(t, "In Transit", v.Status)
	require.Nil(t, v.Fees)

	v = Render(s, owner)
	require.Equal(t, "In Transit", v.Status)
	require.NotNil(t, v.Fees)
	require.True(t, v.Fees.Paid)
}

func TestRender_EstimateTBD(t *testing.T) {
	s := models.NewShipment("GSE-8")
	s.Status = "In Transit"
	est := "2026-06-01"
	s.EstimatedDelivery = &est

	v := Render(s, nil)
	require.Equal(t, "2026-06-01", *v.EstimatedDelivery)

	s.EstimatedDeliveryTBD = true
	v = Render(s, nil)
	require.Equal(t, EstimateTBDPlaceholder, *v.EstimatedDelivery)
	require.Equal(t, "2026-06-01", *s.EstimatedDelivery)
}

func TestRender_DoesNotMutate(t *testing.T) {
	s := heldShipment()
	s.Events = []models.Event{{Date: "bad"}, {Date: "2026-01-01 00:00"}}
	before := s.Clone()

	_ = Render(s, owner)
	require.Equal(t, before, s)
}

func TestRender_EmptyStatusIsUnknown(t *testing.T) {
	v := Render(models.NewShipment("X"), nil)
	require.Equal(t, "Unknown", v.Status)
	require.Equal(t, models.BucketOther, v.Bucket)
	require.NotNil(t, v.Route)
}
