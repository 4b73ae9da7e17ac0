package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ProductService manages the fuel and merchandise catalog. Price changes
// always write a price_history row in the same transaction as the update,
// so the history is a complete record of every effective price.
type ProductService struct {
	pool *pgxpool.Pool
}

func NewProductService(pool *pgxpool.Pool) *ProductService {
	return &ProductService{pool: pool}
}

type ProductInput struct {
	Code     string          `json:"code"`
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Unit     string          `json:"unit"`
	Price    decimal.Decimal `json:"price"`
}

func (s *ProductService) CreateProduct(ctx context.Context, in ProductInput) (*Product, error) {
	if in.Code == "" || in.Name == "" {
		return nil, fmt.Errorf("product code and name are required: %w", ErrValidation)
	}
	if in.Price.IsNegative() {
		return nil, fmt.Errorf("product price must be >= 0: %w", ErrValidation)
	}
	if in.Category == "" {
		in.Category = "fuel"
	}
	if in.Unit == "" {
		in.Unit = "litre"
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int
	err = tx.QueryRow(ctx, `
		INSERT INTO products (code, name, category, unit, current_price)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, in.Code, in.Name, in.Category, in.Unit, in.Price).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert product: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO price_history (product_id, price) VALUES ($1, $2)
	`, id, in.Price); err != nil {
		return nil, fmt.Errorf("insert initial price history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit product: %w", err)
	}
	return s.GetProduct(ctx, id)
}

const productColumns = "id, code, name, category, unit, current_price, is_active, created_at"

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	if err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Category, &p.Unit, &p.CurrentPrice, &p.IsActive, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *ProductService) GetProduct(ctx context.Context, id int) (*Product, error) {
	p, err := scanProduct(s.pool.QueryRow(ctx,
		"SELECT "+productColumns+" FROM products WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("fetch product %d: %w", id, err)
	}
	return p, nil
}

func (s *ProductService) GetProductByCode(ctx context.Context, code string) (*Product, error) {
	p, err := scanProduct(s.pool.QueryRow(ctx,
		"SELECT "+productColumns+" FROM products WHERE code = $1", code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("product %s: %w", code, ErrNotFound)
		}
		return nil, fmt.Errorf("fetch product %s: %w", code, err)
	}
	return p, nil
}

// GetProductByName is used by the CSV importer, which identifies products by
// display name. Matching is case-insensitive.
func (s *ProductService) GetProductByName(ctx context.Context, name string) (*Product, error) {
	p, err := scanProduct(s.pool.QueryRow(ctx,
		"SELECT "+productColumns+" FROM products WHERE LOWER(name) = LOWER($1) AND is_active", name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("product %q: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("fetch product %q: %w", name, err)
	}
	return p, nil
}

func (s *ProductService) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+productColumns+" FROM products ORDER BY code")
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// UpdatePrice changes the current price and appends to price_history in one
// transaction. changedBy records the acting username when known.
func (s *ProductService) UpdatePrice(ctx context.Context, productID int, price decimal.Decimal, changedBy string) (*Product, error) {
	if price.IsNegative() {
		return nil, fmt.Errorf("price must be >= 0: %w", ErrValidation)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		"UPDATE products SET current_price = $1 WHERE id = $2", price, productID)
	if err != nil {
		return nil, fmt.Errorf("update product %d price: %w", productID, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("product %d: %w", productID, ErrNotFound)
	}

	var by *string
	if changedBy != "" {
		by = &changedBy
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO price_history (product_id, price, changed_by) VALUES ($1, $2, $3)
	`, productID, price, by); err != nil {
		return nil, fmt.Errorf("insert price history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit price update: %w", err)
	}
	return s.GetProduct(ctx, productID)
}

func (s *ProductService) GetPriceHistory(ctx context.Context, productID int) ([]PricePoint, error) {
	if _, err := s.GetProduct(ctx, productID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, product_id, price, effective_from, changed_by
		FROM price_history
		WHERE product_id = $1
		ORDER BY effective_from DESC, id DESC
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("query price history: %w", err)
	}
	defer rows.Close()

	var points []PricePoint
	for rows.Next() {
		var pp PricePoint
		if err := rows.Scan(&pp.ID, &pp.ProductID, &pp.Price, &pp.EffectiveFrom, &pp.ChangedBy); err != nil {
			return nil, fmt.Errorf("scan price point: %w", err)
		}
		points = append(points, pp)
	}
	return points, rows.Err()
}

// SetActive soft-enables or disables a product. Inactive products are kept
// for historical reporting but rejected on new sales.
func (s *ProductService) SetActive(ctx context.Context, productID int, active bool) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE products SET is_active = $1 WHERE id = $2", active, productID)
	if err != nil {
		return fmt.Errorf("update product %d active flag: %w", productID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("product %d: %w", productID, ErrNotFound)
	}
	return nil
}
