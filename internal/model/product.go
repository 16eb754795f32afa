package model

import "time"

type Product struct {
	ID           string    `json:"id"`
	SKU          string    `json:"sku"`
	Name         string    `json:"name"`
	Material     string    `json:"material,omitempty"` // PLA, PETG, resin...
	UnitPrice    float64   `json:"unit_price"`
	LeadTimeDays int       `json:"lead_time_days"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
