package models

import "time"

type EventType string

const (
	EventClientRegistered  EventType = "client_registered"
	EventClientDeleted     EventType = "client_deleted"
	EventTransferCompleted EventType = "transfer_completed"
)

// ClientEvent is published after a registration or deletion is committed.
type ClientEvent struct {
	EventID   string    `json:"event_id"`
	Type      EventType `json:"type"`
	ClientID  int64     `json:"client_id,omitempty"`
	Name      string    `json:"name"`
	Balance   int64     `json:"balance,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TransferEvent is published after both legs of a transfer are committed.
type TransferEvent struct {
	EventID       string    `json:"event_id"`
	Type          EventType `json:"type"`
	RequestID     string    `json:"request_id,omitempty"`
	SenderName    string    `json:"sender_name"`
	RecipientName string    `json:"recipient_name"`
	Amount        int64     `json:"amount"`
	CreatedAt     time.Time `json:"created_at"`
}

// TransferCommand is an asynchronous transfer request read from the message bus.
type TransferCommand struct {
	RequestID      string `json:"request_id"`
	SenderName     string `json:"sender_name"`
	SenderPassword string `json:"sender_password"`
	RecipientName  string `json:"recipient_name"`
	Amount         int64  `json:"amount"`
}
