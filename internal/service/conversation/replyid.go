package conversation

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/meistersol/bookingbot/pkg/apperror"
)

// macLength is the number of hex characters of the HMAC kept in the token.
// Row ids are length-capped by the message transport, so the MAC is truncated.
const macLength = 12

// ReplyToken is the composite identifier carried inside an interactive reply.
// The first segment points at the current selection, the second at the
// previously presented menu so Back can return to it. The wire form is
// "{c}~{m}~{item}~{appt}|{pc}~{pm}~{pi}|{mac}".
type ReplyToken struct {
	ClientID      int64
	MenuID        int64
	ItemID        string
	AppointmentID int64

	PrevClientID int64
	PrevMenuID   int64
	PrevSelectID string
}

// Codec signs and verifies reply tokens. Tokens failing the MAC are rejected
// before any state is touched.
type Codec struct {
	secret []byte
}

func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret)}
}

// Encode renders the token in wire form with its MAC segment appended.
func (c *Codec) Encode(t ReplyToken) string {
	payload := c.payload(t)
	return payload + "|" + c.mac(payload)
}

// Decode parses and verifies a wire token.
func (c *Codec) Decode(raw string) (ReplyToken, error) {
	segments := strings.Split(raw, "|")
	if len(segments) != 3 {
		return ReplyToken{}, apperror.Validation("malformed reply token", nil)
	}
	payload := segments[0] + "|" + segments[1]
	if !hmac.Equal([]byte(c.mac(payload)), []byte(segments[2])) {
		return ReplyToken{}, apperror.Validation("reply token failed integrity check", nil)
	}

	current := strings.Split(segments[0], "~")
	previous := strings.Split(segments[1], "~")
	if len(current) != 4 || len(previous) != 3 {
		return ReplyToken{}, apperror.Validation("malformed reply token", nil)
	}

	var t ReplyToken
	var err error
	if t.ClientID, err = strconv.ParseInt(current[0], 10, 64); err != nil {
		return ReplyToken{}, apperror.Validation("malformed reply token", err)
	}
	if t.MenuID, err = strconv.ParseInt(current[1], 10, 64); err != nil {
		return ReplyToken{}, apperror.Validation("malformed reply token", err)
	}
	t.ItemID = current[2]
	if t.AppointmentID, err = strconv.ParseInt(current[3], 10, 64); err != nil {
		return ReplyToken{}, apperror.Validation("malformed reply token", err)
	}
	if t.PrevClientID, err = strconv.ParseInt(previous[0], 10, 64); err != nil {
		return ReplyToken{}, apperror.Validation("malformed reply token", err)
	}
	if t.PrevMenuID, err = strconv.ParseInt(previous[1], 10, 64); err != nil {
		return ReplyToken{}, apperror.Validation("malformed reply token", err)
	}
	t.PrevSelectID = previous[2]
	return t, nil
}

func (c *Codec) payload(t ReplyToken) string {
	return fmt.Sprintf("%d~%d~%s~%d|%d~%d~%s",
		t.ClientID, t.MenuID, t.ItemID, t.AppointmentID,
		t.PrevClientID, t.PrevMenuID, t.PrevSelectID)
}

func (c *Codec) mac(payload string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))[:macLength]
}
