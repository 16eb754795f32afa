package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ddreams/internal/model"
)

var ErrProductNotFound = errors.New("product not found")

type CatalogService struct {
	db *sql.DB
}

func NewCatalogService(db *sql.DB) *CatalogService {
	return &CatalogService{db: db}
}

func (s *CatalogService) ListActive(ctx context.Context) ([]model.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sku, name, COALESCE(material, ''), unit_price, lead_time_days, active, created_at, updated_at
		FROM products
		WHERE active = TRUE
		ORDER BY sku
	`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.Material, &p.UnitPrice, &p.LeadTimeDays, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return products, nil
}

// PriceItems resolves unit prices and names for the given product ids.
// Prices always come from the catalog, never from the client.
func (s *CatalogService) PriceItems(ctx context.Context, tx *sql.Tx, productIDs []string) (map[string]model.Product, error) {
	priced := make(map[string]model.Product, len(productIDs))
	for _, id := range productIDs {
		if _, ok := priced[id]; ok {
			continue
		}
		var p model.Product
		err := tx.QueryRowContext(ctx, `
			SELECT id, sku, name, unit_price, lead_time_days FROM products WHERE id = $1 AND active = TRUE
		`, id).Scan(&p.ID, &p.SKU, &p.Name, &p.UnitPrice, &p.LeadTimeDays)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("%w: %s", ErrProductNotFound, id)
			}
			return nil, fmt.Errorf("price product %s: %w", id, err)
		}
		priced[id] = p
	}
	return priced, nil
}
