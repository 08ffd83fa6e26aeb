package messages

// Webhook envelope for Instagram messaging events, as Meta delivers them.
// One POST can carry several entries and each entry several messaging events.

type WebhookEvent struct {
	Object string  `json:"object"` // "instagram"
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID        string           `json:"id"`
	Time      int64            `json:"time"`
	Messaging []MessagingEvent `json:"messaging"`
}

// MessagingEvent carries either a message or a postback, never both.
type MessagingEvent struct {
	Sender    Party     `json:"sender"`
	Recipient Party     `json:"recipient"`
	Timestamp int64     `json:"timestamp"`
	Message   *Message  `json:"message,omitempty"`
	Postback  *Postback `json:"postback,omitempty"`
}

type Party struct {
	ID string `json:"id"` // IGSID
}

type Message struct {
	MID    string `json:"mid"`
	Text   string `json:"text"`
	IsEcho bool   `json:"is_echo"`
}

// Postback is a button click. Title reads like what the user tapped.
type Postback struct {
	MID     string `json:"mid"`
	Title   string `json:"title"`
	Payload string `json:"payload"`
}

// Incoming is one flattened user turn extracted from a webhook event.
type Incoming struct {
	SenderID string
	Text     string
}

// Flatten walks the entries and returns the turns worth handling. Echoes of
// the bot's own sends and empty texts are skipped; postbacks arrive as their
// button title so the conversation reads naturally.
func (e WebhookEvent) Flatten() []Incoming {
	var turns []Incoming
	for _, entry := range e.Entry {
		for _, ev := range entry.Messaging {
			if ev.Sender.ID == "" {
				continue
			}
			switch {
			case ev.Message != nil:
				if ev.Message.IsEcho || ev.Message.Text == "" {
					continue
				}
				turns = append(turns, Incoming{SenderID: ev.Sender.ID, Text: ev.Message.Text})
			case ev.Postback != nil:
				text := ev.Postback.Title
				if text == "" {
					text = ev.Postback.Payload
				}
				if text == "" {
					continue
				}
				turns = append(turns, Incoming{SenderID: ev.Sender.ID, Text: text})
			}
		}
	}
	return turns
}
