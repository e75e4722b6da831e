package model

// EventType is the type tag of an inbound webhook event.
type EventType string

const (
	EventTypeMessage  EventType = "message"
	EventTypePostback EventType = "postback"
	EventTypeFollow   EventType = "follow"
	EventTypeUnfollow EventType = "unfollow"
)

// MessageType is the payload kind carried by a message event.
type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
)

// Source identifies who sent an event.
type Source struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

// Message is the type-specific payload of a message event.
// Text is set for text messages, ID references downloadable
// content for image messages.
type Message struct {
	ID   string      `json:"id"`
	Type MessageType `json:"type"`
	Text string      `json:"text,omitempty"`
}

// Postback is the payload of a postback event.
type Postback struct {
	Data string `json:"data"`
}

// Event is one unit of activity reported by the LINE platform.
// Exactly one of Message or Postback is set, depending on Type.
// Events are immutable once decoded.
type Event struct {
	Type       EventType `json:"type"`
	Timestamp  int64     `json:"timestamp"`
	ReplyToken string    `json:"replyToken,omitempty"`
	Source     Source    `json:"source"`
	Message    *Message  `json:"message,omitempty"`
	Postback   *Postback `json:"postback,omitempty"`
}

// EventBatch is one inbound webhook delivery.
type EventBatch struct {
	Destination string  `json:"destination"`
	Events      []Event `json:"events"`
}
