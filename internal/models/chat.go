package models

type Sender string

const (
	SenderUser   Sender = "user"
	SenderAdmin  Sender = "admin"
	SenderSystem Sender = "system"
)

type ChatThread struct {
	TrackingID string        `json:"tracking_id"`
	OwnerEmail string        `json:"owner_email"`
	Messages   []ChatMessage `json:"messages"`
}

func NewChatThread(trackingID, ownerEmail string) *ChatThread {
	return &ChatThread{TrackingID: trackingID, OwnerEmail: ownerEmail, Messages: []ChatMessage{}}
}

func (t *ChatThread) Clone() *ChatThread {
	if t == nil {
		return nil
	}
	c := *t
	c.Messages = append([]ChatMessage{}, t.Messages...)
	return &c
}

// ChatMessage хранит два времени: TS (unix-секунды) для подсчёта непрочитанных и Time для отображения.
type ChatMessage struct {
	ID     string `json:"id"`
	TS     int64  `json:"ts"`
	Time   string `json:"time"`
	Sender Sender `json:"sender"`
	Text   string `json:"text"`
}
