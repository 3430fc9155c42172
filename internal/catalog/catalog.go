package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrStoreNotFound   = errors.New("store not found")
	ErrProductNotFound = errors.New("product not found")
)

type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (*Conf, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	return &Conf{db: db}, nil
}

func (c *Conf) CreateStore(ctx context.Context, ownerID string, ns NewStore) (Store, error) {
	store := Store{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Name:        ns.Name,
		Address:     ns.Address,
		Description: ns.Description,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO stores (id, owner_id, name, address, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, store.ID, store.OwnerID, store.Name, store.Address, store.Description, store.CreatedAt, store.UpdatedAt)
	if err != nil {
		return Store{}, fmt.Errorf("inserting store: %w", err)
	}
	return store, nil
}

func (c *Conf) GetStore(ctx context.Context, storeID string) (Store, error) {
	var s Store
	err := c.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, address, description, created_at, updated_at
		FROM stores WHERE id = $1
	`, storeID).Scan(&s.ID, &s.OwnerID, &s.Name, &s.Address, &s.Description, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Store{}, ErrStoreNotFound
	}
	if err != nil {
		return Store{}, fmt.Errorf("querying store: %w", err)
	}
	return s, nil
}

func (c *Conf) ListStoresForOwner(ctx context.Context, ownerID string) ([]Store, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, owner_id, name, address, description, created_at, updated_at
		FROM stores WHERE owner_id = $1 ORDER BY name ASC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("querying stores: %w", err)
	}
	defer rows.Close()

	var stores []Store
	for rows.Next() {
		var s Store
		if err := rows.Scan(&s.ID, &s.OwnerID, &s.Name, &s.Address, &s.Description, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning store: %w", err)
		}
		stores = append(stores, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating stores: %w", err)
	}
	return stores, nil
}

func (c *Conf) UpdateStore(ctx context.Context, storeID string, ns NewStore) (Store, error) {
	res, err := c.db.ExecContext(ctx, `
		UPDATE stores SET
			name        = COALESCE(NULLIF($1, ''), name),
			address     = COALESCE(NULLIF($2, ''), address),
			description = COALESCE(NULLIF($3, ''), description),
			updated_at  = NOW()
		WHERE id = $4
	`, ns.Name, ns.Address, ns.Description, storeID)
	if err != nil {
		return Store{}, fmt.Errorf("updating store: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return Store{}, ErrStoreNotFound
	}
	return c.GetStore(ctx, storeID)
}

func (c *Conf) DeleteStore(ctx context.Context, storeID string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM stores WHERE id = $1`, storeID)
	if err != nil {
		return fmt.Errorf("deleting store: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrStoreNotFound
	}
	return nil
}

func (c *Conf) CreateProduct(ctx context.Context, storeID string, np NewProduct) (Product, error) {
	product := Product{
		ID:          uuid.NewString(),
		StoreID:     storeID,
		Name:        np.Name,
		Description: np.Description,
		Price:       np.Price,
		Stock:       np.Stock,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO products (id, store_id, name, description, price, stock, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, product.ID, product.StoreID, product.Name, product.Description, product.Price, product.Stock,
		product.CreatedAt, product.UpdatedAt)
	if err != nil {
		return Product{}, fmt.Errorf("inserting product: %w", err)
	}
	return product, nil
}

func (c *Conf) GetProduct(ctx context.Context, productID string) (Product, error) {
	var p Product
	err := c.db.QueryRowContext(ctx, `
		SELECT id, store_id, name, description, price, stock, created_at, updated_at
		FROM products WHERE id = $1
	`, productID).Scan(&p.ID, &p.StoreID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, ErrProductNotFound
	}
	if err != nil {
		return Product{}, fmt.Errorf("querying product: %w", err)
	}
	return p, nil
}

func (c *Conf) ListProductsForStore(ctx context.Context, storeID string) ([]Product, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, store_id, name, description, price, stock, created_at, updated_at
		FROM products WHERE store_id = $1 ORDER BY name ASC
	`, storeID)
	if err != nil {
		return nil, fmt.Errorf("querying products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.StoreID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating products: %w", err)
	}
	return products, nil
}

func (c *Conf) UpdateProduct(ctx context.Context, productID string, np NewProduct) (Product, error) {
	res, err := c.db.ExecContext(ctx, `
		UPDATE products SET
			name        = COALESCE(NULLIF($1, ''), name),
			description = COALESCE(NULLIF($2, ''), description),
			price       = CASE WHEN $3 > 0 THEN $3 ELSE price END,
			stock       = CASE WHEN $4 >= 0 THEN $4 ELSE stock END,
			updated_at  = NOW()
		WHERE id = $5
	`, np.Name, np.Description, np.Price, np.Stock, productID)
	if err != nil {
		return Product{}, fmt.Errorf("updating product: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return Product{}, ErrProductNotFound
	}
	return c.GetProduct(ctx, productID)
}

func (c *Conf) DeleteProduct(ctx context.Context, productID string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, productID)
	if err != nil {
		return fmt.Errorf("deleting product: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrProductNotFound
	}
	return nil
}
