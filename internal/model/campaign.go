package model

import (
	"encoding/json"
	"time"
)

// Campaign is a seasonal content-and-theme override for the public site,
// active within a calendar date range.
type Campaign struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Slug      string          `json:"slug"`
	Theme     json.RawMessage `json:"theme,omitempty"` // colors, banner copy, hero assets
	StartsOn  time.Time       `json:"starts_on"`
	EndsOn    time.Time       `json:"ends_on"`
	Enabled   bool            `json:"enabled"`
	CreatedAt time.Time       `json:"created_at"`
}

// ActiveOn reports whether the campaign covers the given date.
func (c *Campaign) ActiveOn(t time.Time) bool {
	return c.Enabled && !t.Before(c.StartsOn) && !t.After(c.EndsOn)
}
