package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"ddreams/internal/cache"
	"ddreams/internal/model"
)

var (
	ErrCampaignNotFound = errors.New("campaign not found")
	ErrNoActiveCampaign = errors.New("no active campaign")
)

type CampaignService struct {
	db  *sql.DB
	rdb *redis.Client
}

func NewCampaignService(db *sql.DB, rdb *redis.Client) *CampaignService {
	return &CampaignService{db: db, rdb: rdb}
}

func (s *CampaignService) Create(ctx context.Context, c *model.Campaign) error {
	if c.EndsOn.Before(c.StartsOn) {
		return errors.New("campaign ends before it starts")
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO campaigns (name, slug, theme, starts_on, ends_on, enabled)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, c.Name, c.Slug, nullableJSON(c.Theme), c.StartsOn, c.EndsOn, c.Enabled).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert campaign: %w", err)
	}
	cache.Delete(ctx, s.rdb, fmt.Sprintf(cache.KeyActiveCampaign, time.Now().Format("2006-01-02")))
	return nil
}

func (s *CampaignService) List(ctx context.Context) ([]model.Campaign, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, slug, theme, starts_on, ends_on, enabled, created_at
		FROM campaigns ORDER BY starts_on DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []model.Campaign
	for rows.Next() {
		var c model.Campaign
		var theme []byte
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &theme, &c.StartsOn, &c.EndsOn, &c.Enabled, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		c.Theme = theme
		campaigns = append(campaigns, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	return campaigns, nil
}

// Active returns the campaign covering the given date. When ranges
// overlap the latest start wins. The hit is cached per calendar day.
func (s *CampaignService) Active(ctx context.Context, on time.Time) (*model.Campaign, error) {
	day := on.Format("2006-01-02")
	key := fmt.Sprintf(cache.KeyActiveCampaign, day)
	if v := cache.GetString(ctx, s.rdb, key); v != "" {
		var c model.Campaign
		if err := json.Unmarshal([]byte(v), &c); err == nil {
			return &c, nil
		}
	}

	var c model.Campaign
	var theme []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, slug, theme, starts_on, ends_on, enabled, created_at
		FROM campaigns
		WHERE enabled = TRUE AND starts_on <= $1 AND ends_on >= $1
		ORDER BY starts_on DESC
		LIMIT 1
	`, day).Scan(&c.ID, &c.Name, &c.Slug, &theme, &c.StartsOn, &c.EndsOn, &c.Enabled, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoActiveCampaign
		}
		return nil, fmt.Errorf("get active campaign: %w", err)
	}
	c.Theme = theme

	if raw, err := json.Marshal(c); err == nil {
		cache.Set(ctx, s.rdb, key, raw, cache.TTLActiveCampaign)
	}
	return &c, nil
}

// Update replaces every editable field of a campaign.
func (s *CampaignService) Update(ctx context.Context, c *model.Campaign) error {
	if c.EndsOn.Before(c.StartsOn) {
		return errors.New("campaign ends before it starts")
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE campaigns SET name = $1, slug = $2, theme = $3, starts_on = $4, ends_on = $5, enabled = $6
		WHERE id = $7
	`, c.Name, c.Slug, nullableJSON(c.Theme), c.StartsOn, c.EndsOn, c.Enabled, c.ID)
	if err != nil {
		return fmt.Errorf("update campaign: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCampaignNotFound
	}
	cache.Delete(ctx, s.rdb, fmt.Sprintf(cache.KeyActiveCampaign, time.Now().Format("2006-01-02")))
	return nil
}

func (s *CampaignService) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM campaigns WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete campaign: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCampaignNotFound
	}
	cache.Delete(ctx, s.rdb, fmt.Sprintf(cache.KeyActiveCampaign, time.Now().Format("2006-01-02")))
	return nil
}

func (s *CampaignService) SetEnabled(ctx context.Context, id string, enabled bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE campaigns SET enabled = $1 WHERE id = $2`, enabled, id)
	if err != nil {
		return fmt.Errorf("update campaign: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCampaignNotFound
	}
	cache.Delete(ctx, s.rdb, fmt.Sprintf(cache.KeyActiveCampaign, time.Now().Format("2006-01-02")))
	return nil
}
