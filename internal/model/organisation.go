package model

import "time"

// Organisation owns documents and the per-organisation sequential counter.
// DocumentNextID starts at 1 and is only ever mutated inside the same
// transaction as the document insert it numbers.
type Organisation struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	DocumentNextID int       `json:"document_next_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
