package models

// Client is a single bank client's stored state. ID is assigned by the store.
type Client struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Password string `json:"-"`
	Balance  int64  `json:"balance"`
}
