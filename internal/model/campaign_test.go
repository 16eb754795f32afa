package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCampaignActiveOn(t *testing.T) {
	c := Campaign{
		Enabled:  true,
		StartsOn: time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
		EndsOn:   time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
	}

	assert.True(t, c.ActiveOn(time.Date(2025, 12, 15, 0, 0, 0, 0, time.UTC)))
	assert.True(t, c.ActiveOn(c.StartsOn), "range is inclusive on both ends")
	assert.True(t, c.ActiveOn(c.EndsOn))
	assert.False(t, c.ActiveOn(time.Date(2025, 11, 30, 0, 0, 0, 0, time.UTC)))
	assert.False(t, c.ActiveOn(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))

	c.Enabled = false
	assert.False(t, c.ActiveOn(c.StartsOn), "disabled campaigns are never active")
}
