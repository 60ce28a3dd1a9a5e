package service

import (
	"encoding/json"
	"regexp"
	"strings"

	"salesboard/internal/model"
)

var transactionIDRe = regexp.MustCompile(model.TransactionIDPattern)

// ResolveTransactionID returns the canonical transaction id of a ledger event
// id ("acme_TX123_PURCHASE_APPROVED" → "TX123"). Ids that do not follow the
// provider pattern are their own transaction id.
func ResolveTransactionID(eventID string) string {
	m := transactionIDRe.FindStringSubmatch(eventID)
	if m == nil {
		return eventID
	}
	return m[1]
}

// flexString accepts JSON strings and numbers; providers are inconsistent
// about numeric ids.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	*s = flexString(strings.TrimSpace(string(b)))
	return nil
}

// ledgerPayload is the part of the provider webhook body the merger reads.
type ledgerPayload struct {
	Data struct {
		Buyer struct {
			Name  flexString `json:"name"`
			Email flexString `json:"email"`
		} `json:"buyer"`
		Product struct {
			ID   flexString `json:"id"`
			Name flexString `json:"name"`
		} `json:"product"`
		Purchase struct {
			Offer struct {
				Code flexString `json:"code"`
			} `json:"offer"`
			Origin struct {
				Sck flexString `json:"sck"`
			} `json:"origin"`
		} `json:"purchase"`
	} `json:"data"`
}

// parsePayload never fails; an unreadable payload contributes nothing.
func parsePayload(raw json.RawMessage) (ledgerPayload, bool) {
	var p ledgerPayload
	if len(raw) == 0 {
		return p, true
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return ledgerPayload{}, false
	}
	return p, true
}
