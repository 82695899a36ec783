package whatsapp

import (
	"github.com/meistersol/bookingbot/internal/model"
)

// Notification mirrors the Cloud API webhook envelope down to the fields this
// service reads.
type Notification struct {
	Object string `json:"object"`
	Entry  []struct {
		Changes []struct {
			Value struct {
				Metadata struct {
					DisplayPhoneNumber string `json:"display_phone_number"`
					PhoneNumberID      string `json:"phone_number_id"`
				} `json:"metadata"`
				Messages []struct {
					From string `json:"from"`
					Type string `json:"type"`
					Text struct {
						Body string `json:"body"`
					} `json:"text"`
					Interactive struct {
						Type        string `json:"type"`
						ButtonReply struct {
							ID    string `json:"id"`
							Title string `json:"title"`
						} `json:"button_reply"`
						ListReply struct {
							ID    string `json:"id"`
							Title string `json:"title"`
						} `json:"list_reply"`
					} `json:"interactive"`
				} `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// Normalize flattens the webhook envelope into transport-neutral messages.
// Status-only notifications carry no messages and yield an empty slice.
func (n *Notification) Normalize() []model.InboundMessage {
	var out []model.InboundMessage
	for _, entry := range n.Entry {
		for _, change := range entry.Changes {
			value := change.Value
			for _, msg := range value.Messages {
				inbound := model.InboundMessage{
					From:               msg.From,
					DisplayPhoneNumber: value.Metadata.DisplayPhoneNumber,
					Type:               msg.Type,
				}
				switch msg.Type {
				case model.MessageTypeText:
					inbound.Body = msg.Text.Body
				case model.MessageTypeInteractive:
					reply := &model.InteractiveReply{Kind: msg.Interactive.Type}
					switch msg.Interactive.Type {
					case model.ReplyKindButton:
						reply.ID = msg.Interactive.ButtonReply.ID
						reply.Title = msg.Interactive.ButtonReply.Title
					case model.ReplyKindList:
						reply.ID = msg.Interactive.ListReply.ID
						reply.Title = msg.Interactive.ListReply.Title
					}
					inbound.Interactive = reply
					inbound.Body = reply.Title
				default:
					continue
				}
				out = append(out, inbound)
			}
		}
	}
	return out
}
