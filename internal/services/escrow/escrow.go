package escrow

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/BearBump/ShipDesk/internal/models"
	"github.com/BearBump/ShipDesk/internal/services/history"
	"github.com/pkg/errors"
)

// Machine проводит переходы эскроу по полям Fee. Журнал нужен для записей о получении кода и выпуске груза.
type Machine struct {
	journal *history.Journal
	now     func() time.Time
	newCode func() string
}

func New(journal *history.Journal, now func() time.Time, newCode func() string) *Machine {
	if now == nil {
		now = time.Now
	}
	if newCode == nil {
		newCode = NewCode
	}
	if journal == nil {
		journal = history.NewJournal(now)
	}
	return &Machine{journal: journal, now: now, newCode: newCode}
}

func State(f *models.Fee) models.FeeState {
	switch {
	case f == nil:
		return models.FeeStateNone
	case f.Paid:
		return models.FeeStatePaid
	case f.InitCodeReceived:
		return models.FeeStateCodeReceived
	case f.InitCode != "":
		return models.FeeStateInitiated
	default:
		return models.FeeStateAssessed
	}
}

// ParseAmount разбирает сумму из формы. Пустое значение не ошибка; неразборчивое даёт ok=false,
// вызывающий оставляет сумму пустой и не валит обновление.
func ParseAmount(raw string) (amount *float64, ok bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, false
	}
	return &v, true
}

// Assess начисляет сбор, если отправление на удержании и сумма задана.
// Платёжные поля существующей записи сохраняются, paid сбрасывается.
func (m *Machine) Assess(s *models.Shipment, amount *float64, reason string) bool {
	if amount == nil || history.Bucket(s.Status) != models.BucketOnHold {
		return false
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = models.DefaultFeeReason
	}
	if s.Fees == nil {
		s.Fees = &models.Fee{}
	}
	a := *amount
	s.Fees.Amount = &a
	s.Fees.Reason = reason
	s.Fees.Paid = false
	return true
}

// Clear убирает сбор целиком.
func (m *Machine) Clear(s *models.Shipment) {
	s.Fees = nil
}

// MarkPaid: ручная сверка администратором в обход чата.
func (m *Machine) MarkPaid(s *models.Shipment) bool {
	if s.Fees == nil {
		return false
	}
	s.Fees.Paid = true
	s.Fees.PaymentSubmitted = false
	return true
}

// Initiate выдаёт код подтверждения и возвращает его.
func (m *Machine) Initiate(s *models.Shipment, paymentMethod, payerEmail string) (string, error) {
	if s.Fees == nil {
		return "", models.ErrNoFees
	}
	if s.Fees.Paid {
		return "", models.ErrAlreadyPaid
	}
	paymentMethod = strings.TrimSpace(paymentMethod)
	payerEmail = models.NormalizeEmail(payerEmail)
	if paymentMethod == "" || payerEmail == "" {
		return "", errors.Wrap(models.ErrValidation, "payment_method and payer_email are required")
	}

	code := m.newCode()
	s.Fees.PaymentMethod = paymentMethod
	s.Fees.PayerEmail = payerEmail
	s.Fees.InitCode = code
	s.Fees.InitCodeReceived = false
	s.Fees.PaymentSubmitted = false
	s.Fees.InitiatedAt = m.now().Format(history.DateLayout)
	return code, nil
}

// ReceiveCode срабатывает только из стадии initiated, если в тексте найден выданный код.
func (m *Machine) ReceiveCode(s *models.Shipment, text string) bool {
	f := s.Fees
	if State(f) != models.FeeStateInitiated || !MatchesCode(text, f.InitCode) {
		return false
	}
	f.InitCodeReceived = true
	f.PaymentSubmitted = true
	s.Status = models.StatusOnHold
	m.journal.Append(s, "Payment Chat", "Verification code received - awaiting payment details")
	m.journal.Reconcile(s)
	return true
}

// Verify выпускает груз после подтверждения оплаты администратором.
func (m *Machine) Verify(s *models.Shipment) error {
	f := s.Fees
	if f == nil || !f.PaymentSubmitted || f.Paid {
		return models.ErrNotVerifiable
	}
	f.Paid = true
	f.PaymentSubmitted = false

	old := s.Status
	s.Status = models.StatusInTransit
	m.journal.Append(s, "Admin Verification", "Payment Verified - Shipment Released")
	m.journal.NoteStatusChange(s, old, s.Status)
	m.journal.Reconcile(s)
	return nil
}
