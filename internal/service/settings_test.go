package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeDefaults(t *testing.T) {
	doc := map[string]any{
		"studio_name": "Printed Things",
		"notifications": map[string]any{
			"email_on_overdue": false,
		},
		"custom_key": "kept",
	}

	merged := MergeDefaults(DefaultSettings(), doc)

	assert.Equal(t, "Printed Things", merged["studio_name"])
	assert.Equal(t, "EUR", merged["currency"], "missing keys come from defaults")
	assert.Equal(t, "kept", merged["custom_key"], "unknown keys survive the merge")

	notif := merged["notifications"].(map[string]any)
	assert.Equal(t, false, notif["email_on_overdue"])
	assert.Equal(t, true, notif["email_on_status_change"], "nested merge keeps default siblings")
}

func TestMergeDefaultsEmptyDoc(t *testing.T) {
	merged := MergeDefaults(DefaultSettings(), map[string]any{})
	assert.Equal(t, DefaultSettings(), merged)
}

func TestMigrateSettingsFromV1(t *testing.T) {
	doc := map[string]any{
		"studio_name": "DDreams 3D",
		"vat_rate":    0.19,
	}

	migrated := MigrateSettings(doc, 1)

	assert.Equal(t, 0.19, migrated["tax_rate"])
	assert.NotContains(t, migrated, "vat_rate")
}

func TestMigrateSettingsCurrentVersionIsNoop(t *testing.T) {
	doc := map[string]any{"tax_rate": 0.21}
	migrated := MigrateSettings(doc, SettingsVersion)
	assert.Equal(t, map[string]any{"tax_rate": 0.21}, migrated)
}
