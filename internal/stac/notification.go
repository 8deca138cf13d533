package stac

import (
	"encoding/json"

	"github.com/rotisserie/eris"
)

// snsEvent is the Lambda SNS event shape.
type snsEvent struct {
	Records []struct {
		Sns struct {
			Message string `json:"Message"`
		} `json:"Sns"`
	} `json:"Records"`
}

// ParseNotification extracts the item of the first record of an SNS event.
// A payload without Records is decoded as a bare item.
func ParseNotification(data []byte) (*Item, error) {
	var ev snsEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, eris.Wrap(err, "stac: decode notification")
	}
	if len(ev.Records) == 0 {
		return ParseItem(data)
	}
	msg := ev.Records[0].Sns.Message
	if msg == "" {
		return nil, eris.New("stac: notification record has no message")
	}
	return ParseItem([]byte(msg))
}
