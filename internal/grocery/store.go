package grocery

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// PostgresStore implements the Store interface for PostgreSQL.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore connects to the database and bootstraps the schema. The
// unique constraint on category name is what closes the lookup-then-create
// race: two concurrent batches creating the same category both land on the
// same row via the upsert in CreateCategory.
func NewPostgresStore(dataSourceName string) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS categories (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	);
	`
	_, err = db.Exec(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to create categories table: %w", err)
	}

	schema = `
	CREATE TABLE IF NOT EXISTS products (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		quantity TEXT NOT NULL,
		units TEXT NOT NULL,
		category_id BIGINT NOT NULL REFERENCES categories(id),
		image_path TEXT NOT NULL DEFAULT '',
		expiry_date TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`
	_, err = db.Exec(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to create products table: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// ListCategories returns all categories.
func (s *PostgresStore) ListCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	err := s.db.SelectContext(ctx, &categories, "SELECT id, name FROM categories ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// GetCategory retrieves a category by id.
func (s *PostgresStore) GetCategory(ctx context.Context, id int64) (*Category, error) {
	var c Category
	err := s.db.GetContext(ctx, &c, "SELECT id, name FROM categories WHERE id = $1", id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Category not found
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &c, nil
}

// GetCategoryByName retrieves a category by its exact name. Matching is
// case-sensitive on purpose: category names are stored as given.
func (s *PostgresStore) GetCategoryByName(ctx context.Context, name string) (*Category, error) {
	var c Category
	err := s.db.GetContext(ctx, &c, "SELECT id, name FROM categories WHERE name = $1", name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Category not found
		}
		return nil, fmt.Errorf("failed to get category by name: %w", err)
	}
	return &c, nil
}

// CreateCategory inserts a category, returning the existing row when the
// name is already taken (find-or-return-existing).
func (s *PostgresStore) CreateCategory(ctx context.Context, name string) (*Category, error) {
	var c Category
	err := s.db.GetContext(ctx, &c,
		"INSERT INTO categories (name) VALUES ($1) ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name RETURNING id, name",
		name,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return &c, nil
}

// UpdateCategory renames a category. Returns (nil, nil) when the id does not
// exist.
func (s *PostgresStore) UpdateCategory(ctx context.Context, id int64, name string) (*Category, error) {
	var c Category
	err := s.db.GetContext(ctx, &c,
		"UPDATE categories SET name = $2 WHERE id = $1 RETURNING id, name",
		id, name,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Category not found
		}
		return nil, fmt.Errorf("failed to update category: %w", err)
	}
	return &c, nil
}

// DeleteCategory removes a category by id.
func (s *PostgresStore) DeleteCategory(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM categories WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return nil
}

// ListProducts returns products, optionally restricted to one category when
// categoryID is non-zero.
func (s *PostgresStore) ListProducts(ctx context.Context, categoryID int64) ([]Product, error) {
	var products []Product
	var err error
	if categoryID != 0 {
		err = s.db.SelectContext(ctx, &products,
			"SELECT id, name, quantity, units, category_id, image_path, expiry_date, created_at FROM products WHERE category_id = $1 ORDER BY created_at",
			categoryID,
		)
	} else {
		err = s.db.SelectContext(ctx, &products,
			"SELECT id, name, quantity, units, category_id, image_path, expiry_date, created_at FROM products ORDER BY created_at",
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// FindMatchingProduct looks up a product in a category whose stored name and
// units equal the normalized values, tolerating a trailing "s" on the stored
// side. This is the SQL form of MatchesNormalized.
func (s *PostgresStore) FindMatchingProduct(ctx context.Context, categoryID int64, normalizedName, normalizedUnits string) (*Product, error) {
	var p Product
	err := s.db.GetContext(ctx, &p,
		`SELECT id, name, quantity, units, category_id, image_path, expiry_date, created_at
		 FROM products
		 WHERE category_id = $1
		   AND lower(name) IN ($2, $2 || 's')
		   AND lower(units) IN ($3, $3 || 's')
		 LIMIT 1`,
		categoryID, normalizedName, normalizedUnits,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Product not found
		}
		return nil, fmt.Errorf("failed to find matching product: %w", err)
	}
	return &p, nil
}

// CreateProduct inserts a product and fills in its assigned id and creation
// time.
func (s *PostgresStore) CreateProduct(ctx context.Context, product *Product) error {
	err := s.db.QueryRowContext(ctx,
		"INSERT INTO products (name, quantity, units, category_id, image_path, expiry_date) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at",
		product.Name,
		product.Quantity,
		product.Units,
		product.CategoryID,
		product.ImagePath,
		product.ExpiryDate,
	).Scan(&product.ID, &product.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// UpdateProductQuantity sets the stored quantity of a product.
func (s *PostgresStore) UpdateProductQuantity(ctx context.Context, id int64, quantity string) error {
	_, err := s.db.ExecContext(ctx, "UPDATE products SET quantity = $2 WHERE id = $1", id, quantity)
	if err != nil {
		return fmt.Errorf("failed to update product quantity: %w", err)
	}
	return nil
}
