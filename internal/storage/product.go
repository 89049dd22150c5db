package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/kashvijewels/jewel-shop/internal/domain/models"
)

var ErrProductNotFound = errors.New("product not found")

// ProductStorage is the read-only view of the catalog this core needs for
// populating line items.
type ProductStorage interface {
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
}

type productRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) ProductStorage {
	return &productRepository{db: db}
}

func (r *productRepository) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	product := &models.Product{}
	row := r.db.QueryRowContext(ctx, "SELECT id, name, price, images FROM products WHERE id = $1", id)
	if err := row.Scan(&product.ID, &product.Name, &product.Price, pq.Array(&product.Images)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return product, nil
}
