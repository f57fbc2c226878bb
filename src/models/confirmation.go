package models

import "time"

// MConfirmationStatus is the lifecycle state of a confirmation request.
type MConfirmationStatus string

const (
	ConfirmationPending   MConfirmationStatus = "PENDING"
	ConfirmationConfirmed MConfirmationStatus = "CONFIRMED"
	ConfirmationDeclined  MConfirmationStatus = "DECLINED"
	ConfirmationResolved  MConfirmationStatus = "RESOLVED"
	ConfirmationFailed    MConfirmationStatus = "FAILED"
)

// Terminal reports whether no further transition is possible.
func (s MConfirmationStatus) Terminal() bool {
	return s == ConfirmationDeclined || s == ConfirmationResolved || s == ConfirmationFailed
}

// MConfirmation is a server-issued gate on a sensitive command.
type MConfirmation struct {
	ID             string              `json:"id"`
	Message        string              `json:"message"`
	Status         MConfirmationStatus `json:"status"`
	Command        string              `json:"command"`
	ActionsEnabled bool                `json:"actions_enabled"`
	ResultMessage  string              `json:"result_message,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	ResolvedAt     time.Time           `json:"resolved_at,omitempty"`
}
