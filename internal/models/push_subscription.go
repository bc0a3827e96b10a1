package models

import "time"

// PushSubscription is a browser/app web-push endpoint.
type PushSubscription struct {
	Endpoint  string    `json:"endpoint"`
	P256DH    string    `json:"p256dh"`
	Auth      string    `json:"auth"`
	CreatedAt time.Time `json:"created_at"`
}
