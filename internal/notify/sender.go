package notify

import (
	"context"
	"sync"

	"eclassbot-backend/internal/components/telemetry"
)

// Message is one delivered chat message.
type Message struct {
	ChatID string
	Text   string
}

// Outbox is a Sender that keeps messages in memory.
type Outbox struct {
	mutex    sync.Mutex
	messages []Message
	// Err, if set, is returned from every Send.
	Err error
}

func (o *Outbox) Send(_ context.Context, chatID, text string) error {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	if o.Err != nil {
		return o.Err
	}
	o.messages = append(o.messages, Message{ChatID: chatID, Text: text})
	return nil
}

func (o *Outbox) Messages() []Message {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	out := make([]Message, len(o.messages))
	copy(out, o.messages)
	return out
}

func (o *Outbox) Reset() {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.messages = nil
}

// LogSender writes messages to telemetry instead of a chat, used when no
// bot token is configured.
type LogSender struct {
	Tel telemetry.API
}

func (s LogSender) Send(_ context.Context, chatID, text string) error {
	s.Tel.ReportDebug("notify: log sender", chatID, text)
	return nil
}
