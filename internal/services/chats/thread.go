package chats

import (
	"strings"
	"time"

	"github.com/BearBump/ShipDesk/internal/models"
	"github.com/BearBump/ShipDesk/internal/services/history"
	"github.com/google/uuid"
)

const CodeReceivedText = "✅ Code received. A representative will send payment details shortly."

func PaymentInitiatedText(code string) string {
	return "Payment initiated. Your verification code is: " + code +
		". A representative will be in touch with you shortly. Please send this code in this chat to continue."
}

// EnsureThread создаёт тред, если его нет, и один раз проставляет владельца.
// changed=true, когда документ надо сохранить.
func EnsureThread(th *models.ChatThread, trackingID, ownerEmail string) (_ *models.ChatThread, changed bool) {
	owner := models.NormalizeEmail(ownerEmail)
	if th == nil {
		return models.NewChatThread(trackingID, owner), true
	}
	if th.Messages == nil {
		th.Messages = []models.ChatMessage{}
	}
	if owner != "" && strings.TrimSpace(th.OwnerEmail) == "" {
		th.OwnerEmail = owner
		return th, true
	}
	return th, false
}

// AppendMessage добавляет сообщение; пустой после trim текст игнорируется.
func AppendMessage(th *models.ChatThread, sender models.Sender, text string, now time.Time) (models.ChatMessage, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.ChatMessage{}, false
	}
	msg := models.ChatMessage{
		ID:     uuid.NewString(),
		TS:     now.Unix(),
		Time:   now.Format(history.DateLayout),
		Sender: sender,
		Text:   text,
	}
	th.Messages = append(th.Messages, msg)
	return msg, true
}

// CountUnread считает сообщения admin/system новее отметки прочтения по каждому треду
// и возвращает тред самого свежего из них.
func CountUnread(threads []*models.ChatThread, lastRead map[string]int64) (count int, latestTrackingID string) {
	latestTS := int64(-1)
	for _, th := range threads {
		lr := lastRead[th.TrackingID]
		for _, m := range th.Messages {
			if m.Sender != models.SenderAdmin && m.Sender != models.SenderSystem {
				continue
			}
			if m.TS <= lr {
				continue
			}
			count++
			if m.TS > latestTS {
				latestTS = m.TS
				latestTrackingID = th.TrackingID
			}
		}
	}
	return count, latestTrackingID
}
