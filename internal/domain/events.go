package domain

import "time"

// StatusChange is emitted whenever a stored payment actually changes status.
type StatusChange struct {
	Txid   string        `json:"txid"`
	From   PaymentStatus `json:"from"`
	To     PaymentStatus `json:"to"`
	Source string        `json:"source"` // "poll" or "webhook"
	At     time.Time     `json:"at"`
}
