package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"restock-service/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

//go:embed schema.sql
var schema string

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Migrate creates any missing tables and indexes
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// FindProductByName retrieves a product by normalized name, or nil if none matches
func (s *Store) FindProductByName(ctx context.Context, normalizedName string) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE name_key = $1", normalizedName)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// UpsertProduct inserts a product or refreshes the defaults of the one with the same normalized name
func (s *Store) UpsertProduct(ctx context.Context, input models.ProductInput) (*models.Product, error) {
	query := `
		INSERT INTO products (id, name, name_key, default_quantity, default_supplier_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name_key) DO UPDATE SET
			default_quantity = EXCLUDED.default_quantity,
			default_supplier_id = COALESCE(EXCLUDED.default_supplier_id, products.default_supplier_id),
			updated_at = NOW()
		RETURNING *`

	var product models.Product
	err := s.db.GetContext(ctx, &product, query,
		uuid.New().String(), input.Name, models.NormalizeName(input.Name),
		input.DefaultQuantity, input.DefaultSupplierID)
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindSupplierByName retrieves a supplier by normalized name, or nil if none matches
func (s *Store) FindSupplierByName(ctx context.Context, normalizedName string) (*models.Supplier, error) {
	var supplier models.Supplier
	err := s.db.GetContext(ctx, &supplier, "SELECT * FROM suppliers WHERE name_key = $1", normalizedName)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &supplier, nil
}

// UpsertSupplier inserts a supplier, or returns the existing one with the same
// normalized name. An existing supplier keeps its contact details.
func (s *Store) UpsertSupplier(ctx context.Context, input models.SupplierInput) (*models.Supplier, error) {
	query := `
		INSERT INTO suppliers (id, name, name_key, email, phone, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (name_key) DO UPDATE SET updated_at = NOW()
		RETURNING *`

	var supplier models.Supplier
	err := s.db.GetContext(ctx, &supplier, query,
		uuid.New().String(), input.Name, models.NormalizeName(input.Name),
		input.Email, input.Phone, input.Notes)
	if err != nil {
		return nil, err
	}
	return &supplier, nil
}

// IsProductReferenced reports whether any session item uses the product
func (s *Store) IsProductReferenced(ctx context.Context, productID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM session_items WHERE product_id = $1)", productID)
	return exists, err
}

// IsSupplierReferenced reports whether any session item or product default points at the supplier
func (s *Store) IsSupplierReferenced(ctx context.Context, supplierID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `
		SELECT EXISTS(SELECT 1 FROM session_items WHERE supplier_id = $1)
		    OR EXISTS(SELECT 1 FROM products WHERE default_supplier_id = $1)`, supplierID)
	return exists, err
}

// DeleteProduct deletes a product
func (s *Store) DeleteProduct(ctx context.Context, productID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE id = $1", productID)
	return err
}

// DeleteSupplier deletes a supplier
func (s *Store) DeleteSupplier(ctx context.Context, supplierID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM suppliers WHERE id = $1", supplierID)
	return err
}

// ListProducts retrieves all products, most recently updated first
func (s *Store) ListProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products, "SELECT * FROM products ORDER BY updated_at DESC")
	return products, err
}

// ListSuppliers retrieves all suppliers, most recently updated first
func (s *Store) ListSuppliers(ctx context.Context) ([]models.Supplier, error) {
	var suppliers []models.Supplier
	err := s.db.SelectContext(ctx, &suppliers, "SELECT * FROM suppliers ORDER BY updated_at DESC")
	return suppliers, err
}
