package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// SettingsVersion is the current schema version of the settings document.
const SettingsVersion = 2

type SettingsService struct {
	db *sql.DB
}

func NewSettingsService(db *sql.DB) *SettingsService {
	return &SettingsService{db: db}
}

// DefaultSettings is the baseline document; stored documents are merged
// over it so missing keys always resolve.
func DefaultSettings() map[string]any {
	return map[string]any{
		"studio_name":    "DDreams 3D",
		"currency":       "EUR",
		"tax_rate":       0.21,
		"payment_terms":  30.0,
		"delivery_grace": 1.0,
		"notifications": map[string]any{
			"email_on_status_change": true,
			"email_on_overdue":       true,
		},
	}
}

// MergeDefaults fills keys missing from doc with values from defaults,
// recursing into nested objects. Keys present in doc win; unknown keys
// in doc are preserved.
func MergeDefaults(defaults, doc map[string]any) map[string]any {
	out := make(map[string]any, len(defaults)+len(doc))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range doc {
		if sub, ok := v.(map[string]any); ok {
			if defSub, ok := out[k].(map[string]any); ok {
				out[k] = MergeDefaults(defSub, sub)
				continue
			}
		}
		out[k] = v
	}
	return out
}

// MigrateSettings upgrades a settings document stepwise from the given
// version to SettingsVersion.
func MigrateSettings(doc map[string]any, from int) map[string]any {
	for v := from; v < SettingsVersion; v++ {
		switch v {
		case 1:
			// v1 stored the tax rate under "vat_rate"
			if rate, ok := doc["vat_rate"]; ok {
				doc["tax_rate"] = rate
				delete(doc, "vat_rate")
			}
		}
	}
	return doc
}

// Load returns the settings document, migrated to the current version
// and merged with defaults. First call seeds the defaults row.
func (s *SettingsService) Load(ctx context.Context) (map[string]any, error) {
	var raw []byte
	var version int
	err := s.db.QueryRowContext(ctx, `SELECT version, doc FROM settings WHERE id = 1`).Scan(&version, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		doc := DefaultSettings()
		if err := s.save(ctx, doc); err != nil {
			return nil, err
		}
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}

	doc = MergeDefaults(DefaultSettings(), MigrateSettings(doc, version))
	if version < SettingsVersion {
		if err := s.save(ctx, doc); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// Update merges the given keys into the stored document and persists the
// result. Returns the full merged document.
func (s *SettingsService) Update(ctx context.Context, changes map[string]any) (map[string]any, error) {
	doc, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	doc = MergeDefaults(doc, changes)
	if err := s.save(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// TaxRate reads the configured order tax rate, falling back to the
// default when the stored value is malformed.
func (s *SettingsService) TaxRate(ctx context.Context) float64 {
	doc, err := s.Load(ctx)
	if err != nil {
		return DefaultSettings()["tax_rate"].(float64)
	}
	if rate, ok := doc["tax_rate"].(float64); ok {
		return rate
	}
	return DefaultSettings()["tax_rate"].(float64)
}

func (s *SettingsService) save(ctx context.Context, doc map[string]any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO settings (id, version, doc, updated_at) VALUES (1, $1, $2, NOW())
		ON CONFLICT (id) DO UPDATE SET version = $1, doc = $2, updated_at = NOW()
	`, SettingsVersion, raw)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
