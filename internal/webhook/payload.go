package webhook

import (
	"encoding/json"
	"errors"
	"fmt"

	"pixcharge/internal/domain"
)

var ErrInvalidPayload = errors.New("invalid webhook payload")

// Notification is one status report extracted from a webhook body.
type Notification struct {
	Txid   string
	Status string
}

type rawPayload struct {
	Txid   string `json:"txid"`
	Status string `json:"status"`
	Pix    []struct {
		EndToEndID string `json:"endToEndId"`
		Txid       string `json:"txid"`
		Valor      string `json:"valor"`
		Horario    string `json:"horario"`
	} `json:"pix"`
}

// Parse accepts the flat {"txid","status"} form and the BACEN {"pix":[...]}
// notification, reporting which one it saw. Each received pix settles its
// charge, so entries map to CONCLUIDA; entries without a txid are skipped.
func Parse(body []byte) (notes []Notification, batched bool, err error) {
	var p rawPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if p.Pix != nil {
		out := make([]Notification, 0, len(p.Pix))
		seen := make(map[string]bool, len(p.Pix))
		for _, e := range p.Pix {
			if e.Txid == "" || seen[e.Txid] {
				continue
			}
			seen[e.Txid] = true
			out = append(out, Notification{Txid: e.Txid, Status: domain.PSPStatusConcluida})
		}
		return out, true, nil
	}
	if p.Txid == "" || p.Status == "" {
		return nil, false, fmt.Errorf("%w: txid and status are required", ErrInvalidPayload)
	}
	return []Notification{{Txid: p.Txid, Status: p.Status}}, false, nil
}
