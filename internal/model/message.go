package model

// Inbound message types after webhook normalization.
const (
	MessageTypeText        = "text"
	MessageTypeInteractive = "interactive"
)

// Interactive reply kinds.
const (
	ReplyKindButton = "button_reply"
	ReplyKindList   = "list_reply"
)

// InteractiveReply is the selection a user made from a previously sent option
// list or button set. ID is the composite reply token this service emitted.
type InteractiveReply struct {
	Kind  string `json:"kind"`
	ID    string `json:"id"`
	Title string `json:"title"`
}

// InboundMessage is the transport-neutral form of one webhook event.
type InboundMessage struct {
	From               string            `json:"from"`
	DisplayPhoneNumber string            `json:"display_phone_number"`
	Type               string            `json:"type"`
	Body               string            `json:"body"`
	Interactive        *InteractiveReply `json:"interactive,omitempty"`
}

// ReplyOption is one selectable row of an outbound interactive message.
type ReplyOption struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}
