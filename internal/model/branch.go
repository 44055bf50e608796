package model

import "time"

// Branch is a physical location of the laboratory. Branches are global
// rows, not tenant-scoped; they ARE the tenancy dimension.
type Branch struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
