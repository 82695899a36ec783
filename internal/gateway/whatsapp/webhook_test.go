package whatsapp

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meistersol/bookingbot/internal/model"
)

const textNotification = `{
	"object": "whatsapp_business_account",
	"entry": [{
		"changes": [{
			"value": {
				"metadata": {"display_phone_number": "15550001111", "phone_number_id": "106"},
				"messages": [{
					"from": "919900112233",
					"type": "text",
					"text": {"body": "hi"}
				}]
			}
		}]
	}]
}`

const listReplyNotification = `{
	"object": "whatsapp_business_account",
	"entry": [{
		"changes": [{
			"value": {
				"metadata": {"display_phone_number": "15550001111"},
				"messages": [{
					"from": "919900112233",
					"type": "interactive",
					"interactive": {
						"type": "list_reply",
						"list_reply": {"id": "3~20~Cardiology~0|3~10~10|abcdef123456", "title": "Cardiology"}
					}
				}]
			}
		}]
	}]
}`

const statusNotification = `{
	"object": "whatsapp_business_account",
	"entry": [{
		"changes": [{
			"value": {
				"metadata": {"display_phone_number": "15550001111"},
				"statuses": [{"id": "wamid.x", "status": "delivered"}]
			}
		}]
	}]
}`

func decode(t *testing.T, raw string) *Notification {
	t.Helper()
	var n Notification
	require.NoError(t, json.Unmarshal([]byte(raw), &n))
	return &n
}

func TestNormalizeText(t *testing.T) {
	msgs := decode(t, textNotification).Normalize()

	require.Len(t, msgs, 1)
	assert.Equal(t, "919900112233", msgs[0].From)
	assert.Equal(t, "15550001111", msgs[0].DisplayPhoneNumber)
	assert.Equal(t, model.MessageTypeText, msgs[0].Type)
	assert.Equal(t, "hi", msgs[0].Body)
	assert.Nil(t, msgs[0].Interactive)
}

func TestNormalizeListReply(t *testing.T) {
	msgs := decode(t, listReplyNotification).Normalize()

	require.Len(t, msgs, 1)
	require.NotNil(t, msgs[0].Interactive)
	assert.Equal(t, model.ReplyKindList, msgs[0].Interactive.Kind)
	assert.Equal(t, "3~20~Cardiology~0|3~10~10|abcdef123456", msgs[0].Interactive.ID)
	assert.Equal(t, "Cardiology", msgs[0].Interactive.Title)
	assert.Equal(t, "Cardiology", msgs[0].Body)
}

func TestNormalizeStatusOnlyNotification(t *testing.T) {
	assert.Empty(t, decode(t, statusNotification).Normalize())
}
