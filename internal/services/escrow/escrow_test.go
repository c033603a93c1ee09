package escrow

import (
	"testing"
	"time"

	"github.com/BearBump/ShipDesk/internal/models"
	"github.com/BearBump/ShipDesk/internal/services/history"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type EscrowSuite struct {
	suite.Suite

	m *Machine
	s *models.Shipment
}

func (s *EscrowSuite) SetupTest() {
	now := func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) }
	s.m = New(history.NewJournal(now), now, func() string { return "ABC12345" })
	s.s = models.NewShipment("GSE-1")
	s.s.Status = "On Hold"
}

func amount(v float64) *float64 { return &v }

func (s *EscrowSuite) TestParseAmount() {
	a, ok := ParseAmount(" 125.50 ")
	s.Require().True(ok)
	s.Require().InDelta(125.5, *a, 1e-9)

	a, ok = ParseAmount("  ")
	s.Require().True(ok)
	s.Require().Nil(a)

	for _, raw := range []string{"12,5", "abc", "NaN", "Inf"} {
		a, ok = ParseAmount(raw)
		s.Require().False(ok, raw)
		s.Require().Nil(a, raw)
	}
}

func (s *EscrowSuite) TestAssess_RequiresOnHoldBucket() {
	s.s.Status = "In Transit"
	s.Require().False(s.m.Assess(s.s, amount(10), ""))
	s.Require().Nil(s.s.Fees)

	s.s.Status = "Held at customs"
	s.Require().True(s.m.Assess(s.s, amount(10), " "))
	s.Require().Equal(models.DefaultFeeReason, s.s.Fees.Reason)
	s.Require().Equal(models.FeeStateAssessed, State(s.s.Fees))
}

func (s *EscrowSuite) TestAssess_NilAmountLeavesFeesAbsent() {
	s.Require().False(s.m.Assess(s.s, nil, "Duty"))
	s.Require().Nil(s.s.Fees)
}

func (s *EscrowSuite) TestAssess_ReassessKeepsPaymentFieldsAndResetsPaid() {
	s.s.Fees = &models.Fee{Paid: true, PaymentSubmitted: true, InitCode: "X"}
	s.Require().True(s.m.Assess(s.s, amount(40), "Duty"))
	s.Require().False(s.s.Fees.Paid)
	s.Require().True(s.s.Fees.PaymentSubmitted)
	s.Require().Equal("X", s.s.Fees.InitCode)
	s.Require().Equal("Duty", s.s.Fees.Reason)
}

func (s *EscrowSuite) TestInitiate_Guards() {
	_, err := s.m.Initiate(s.s, "wire", "a@b.c")
	s.Require().ErrorIs(err, models.ErrNoFees)

	s.s.Fees = &models.Fee{Amount: amount(10), Paid: true}
	before := *s.s.Fees
	_, err = s.m.Initiate(s.s, "wire", "a@b.c")
	s.Require().ErrorIs(err, models.ErrAlreadyPaid)
	s.Require().Equal(before, *s.s.Fees)

	s.s.Fees.Paid = false
	_, err = s.m.Initiate(s.s, "", "a@b.c")
	s.Require().True(errors.Is(err, models.ErrValidation))
	_, err = s.m.Initiate(s.s, "wire", "  ")
	s.Require().True(errors.Is(err, models.ErrValidation))
	s.Require().Empty(s.s.Fees.InitCode)
}

func (s *EscrowSuite) TestFullFlow() {
	s.Require().True(s.m.Assess(s.s, amount(99), "Customs"))

	code, err := s.m.Initiate(s.s, "Gift card", " Payer@Example.COM ")
	s.Require().NoError(err)
	s.Require().Equal("ABC12345", code)
	s.Require().Equal("payer@example.com", s.s.Fees.PayerEmail)
	s.Require().Equal("2026-05-01 12:00", s.s.Fees.InitiatedAt)
	s.Require().Equal(models.FeeStateInitiated, State(s.s.Fees))

	s.Require().ErrorIs(s.m.Verify(s.s), models.ErrNotVerifiable)

	s.s.Status = "Pending"
	s.Require().False(s.m.ReceiveCode(s.s, "no code here"))
	s.Require().True(s.m.ReceiveCode(s.s, "the code is abc12345 thanks"))
	s.Require().False(s.m.ReceiveCode(s.s, "ABC12345 again"))
	s.Require().Equal(models.FeeStateCodeReceived, State(s.s.Fees))
	s.Require().True(s.s.Fees.PaymentSubmitted)
	s.Require().Equal(models.StatusOnHold, s.s.Status)

	received := 0
	for _, e := range s.s.Events {
		if e.Description == "Verification code received - awaiting payment details" {
			received++
		}
	}
	s.Require().Equal(1, received)

	s.Require().NoError(s.m.Verify(s.s))
	s.Require().Equal(models.FeeStatePaid, State(s.s.Fees))
	s.Require().False(s.s.Fees.PaymentSubmitted)
	s.Require().Equal(models.StatusInTransit, s.s.Status)
	s.Require().ErrorIs(s.m.Verify(s.s), models.ErrNotVerifiable)

	descs := make([]string, 0, len(s.s.Events))
	for _, e := range s.s.Events {
		descs = append(descs, e.Description)
	}
	s.Require().Contains(descs, "Payment Verified - Shipment Released")
	s.Require().Contains(descs, "Status updated: On Hold → In Transit")
	s.Require().Contains(descs, "Shipment is in transit")
}

func (s *EscrowSuite) TestReceiveCode_IgnoredAfterManualPaid() {
	s.Require().True(s.m.Assess(s.s, amount(40), ""))
	_, err := s.m.Initiate(s.s, "Wire", "p@x.io")
	s.Require().NoError(err)
	s.Require().True(s.m.MarkPaid(s.s))
	s.s.Status = models.StatusInTransit
	events := len(s.s.Events)

	s.Require().False(s.m.ReceiveCode(s.s, "abc12345"))
	s.Require().Equal(models.StatusInTransit, s.s.Status)
	s.Require().Equal(models.FeeStatePaid, State(s.s.Fees))
	s.Require().False(s.s.Fees.PaymentSubmitted)
	s.Require().False(s.s.Fees.InitCodeReceived)
	s.Require().Len(s.s.Events, events)
}

func (s *EscrowSuite) TestMarkPaidAndClear() {
	s.Require().False(s.m.MarkPaid(s.s))

	s.s.Fees = &models.Fee{Amount: amount(5), PaymentSubmitted: true}
	s.Require().True(s.m.MarkPaid(s.s))
	s.Require().True(s.s.Fees.Paid)
	s.Require().False(s.s.Fees.PaymentSubmitted)

	s.m.Clear(s.s)
	s.Require().Nil(s.s.Fees)
	s.Require().Equal(models.FeeStateNone, State(s.s.Fees))
}

func TestEscrowSuite(t *testing.T) {
	suite.Run(t, new(EscrowSuite))
}
