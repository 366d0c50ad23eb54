package models

import (
	"time"

	"github.com/lib/pq"
)

// Person represents a contact record. Each person exclusively owns one
// schedule of events, loaded separately from the events table.
type Person struct {
	ID        string         `db:"id" json:"id"`
	Name      string         `db:"name" json:"name"`
	Phone     string         `db:"phone" json:"phone"`
	Email     string         `db:"email" json:"email"`
	Address   string         `db:"address" json:"address"`
	Tags      pq.StringArray `db:"tags" json:"tags"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// HasTag reports whether the person carries the given tag.
func (p Person) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// PersonFilter describes query params for listing persons.
type PersonFilter struct {
	Search    string
	Tag       string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
