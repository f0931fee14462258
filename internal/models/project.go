package models

import "time"

// Project is a saved builder conversation shown on the dashboard. The
// snapshot column carries the JSON state of the conversation at save time.
type Project struct {
	ID        int64     `db:"id"`
	UserID    []byte    `db:"user_id"`
	SessionID string    `db:"session_id"`
	Name      string    `db:"name"`
	Snapshot  string    `db:"snapshot"`
	HasImage  bool      `db:"has_image"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
