package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("not enough stock available")
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

// PlaceOrder checks stock and creates the order row in one transaction so a
// concurrent stock update cannot slip between the check and the insert.
func (c *Conf) PlaceOrder(ctx context.Context, userID, productID string, quantity int) (Order, error) {
	var order Order
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		var storeID string
		var stock int
		err := tx.QueryRowContext(ctx,
			`SELECT store_id, stock FROM products WHERE id = $1 FOR UPDATE`,
			productID,
		).Scan(&storeID, &stock)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrProductNotFound
		}
		if err != nil {
			return fmt.Errorf("querying product stock: %w", err)
		}
		if stock < quantity {
			return ErrInsufficientStock
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE products SET stock = stock - $1 WHERE id = $2`, quantity, productID)
		if err != nil {
			return fmt.Errorf("decrementing stock: %w", err)
		}

		order = Order{
			ID:        uuid.NewString(),
			UserID:    userID,
			ProductID: productID,
			StoreID:   storeID,
			Quantity:  quantity,
			CreatedAt: time.Now().UTC(),
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO orders (id, user_id, product_id, store_id, quantity, delivered, paid, created_at)
			VALUES ($1, $2, $3, $4, $5, FALSE, FALSE, $6)
		`, order.ID, order.UserID, order.ProductID, order.StoreID, order.Quantity, order.CreatedAt)
		if err != nil {
			return fmt.Errorf("inserting order: %w", err)
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	return order, nil
}

func (c *Conf) GetOrder(ctx context.Context, orderID string) (Order, error) {
	var o Order
	err := c.db.QueryRowContext(ctx, `
		SELECT id, user_id, product_id, store_id, quantity, delivered, paid, created_at
		FROM orders WHERE id = $1
	`, orderID).Scan(&o.ID, &o.UserID, &o.ProductID, &o.StoreID, &o.Quantity, &o.Delivered, &o.Paid, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, fmt.Errorf("querying order: %w", err)
	}
	return o, nil
}

// ListForUser returns the buyer's orders, newest first.
func (c *Conf) ListForUser(ctx context.Context, userID string) ([]Order, error) {
	return c.list(ctx, `
		SELECT id, user_id, product_id, store_id, quantity, delivered, paid, created_at
		FROM orders WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
}

// ListForStoreOwner returns orders placed against any store the user owns.
func (c *Conf) ListForStoreOwner(ctx context.Context, ownerID string) ([]Order, error) {
	return c.list(ctx, `
		SELECT o.id, o.user_id, o.product_id, o.store_id, o.quantity, o.delivered, o.paid, o.created_at
		FROM orders o JOIN stores s ON o.store_id = s.id
		WHERE s.owner_id = $1 ORDER BY o.created_at DESC
	`, ownerID)
}

// ListForProductOwner returns orders for products whose store the user owns.
func (c *Conf) ListForProductOwner(ctx context.Context, ownerID string) ([]Order, error) {
	return c.list(ctx, `
		SELECT o.id, o.user_id, o.product_id, o.store_id, o.quantity, o.delivered, o.paid, o.created_at
		FROM orders o
		JOIN products p ON o.product_id = p.id
		JOIN stores s ON p.store_id = s.id
		WHERE s.owner_id = $1 ORDER BY o.created_at DESC
	`, ownerID)
}

func (c *Conf) list(ctx context.Context, query string, args ...any) ([]Order, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying orders: %w", err)
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.ProductID, &o.StoreID, &o.Quantity, &o.Delivered, &o.Paid, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning order: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating orders: %w", err)
	}
	return out, nil
}

func (c *Conf) SetDelivered(ctx context.Context, orderID string, delivered bool) (Order, error) {
	res, err := c.db.ExecContext(ctx,
		`UPDATE orders SET delivered = $1 WHERE id = $2`, delivered, orderID)
	if err != nil {
		return Order{}, fmt.Errorf("updating delivered flag: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return Order{}, ErrNotFound
	}
	return c.GetOrder(ctx, orderID)
}

// MarkPaid sets the paid flag. Only webhook reconciliation calls this.
func (c *Conf) MarkPaid(ctx context.Context, orderID string) error {
	res, err := c.db.ExecContext(ctx,
		`UPDATE orders SET paid = TRUE WHERE id = $1`, orderID)
	if err != nil {
		return fmt.Errorf("marking order paid: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteOrder removes the order and returns its quantity to product stock,
// mirroring the decrement made at placement.
func (c *Conf) DeleteOrder(ctx context.Context, orderID string) error {
	return c.withTx(ctx, func(tx *sql.Tx) error {
		var productID string
		var quantity int
		err := tx.QueryRowContext(ctx,
			`DELETE FROM orders WHERE id = $1 RETURNING product_id, quantity`, orderID,
		).Scan(&productID, &quantity)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("deleting order: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE products SET stock = stock + $1 WHERE id = $2`, quantity, productID)
		if err != nil {
			return fmt.Errorf("restoring stock: %w", err)
		}
		return nil
	})
}

// InsertSuccessfulPayment records a captured payment outcome.
func (c *Conf) InsertSuccessfulPayment(ctx context.Context, p PaymentOutcome) error {
	return c.insertOutcome(ctx, "successful_payments", p)
}

// InsertFailedPayment records a failed payment outcome.
func (c *Conf) InsertFailedPayment(ctx context.Context, p PaymentOutcome) error {
	return c.insertOutcome(ctx, "failed_payments", p)
}

func (c *Conf) insertOutcome(ctx context.Context, table string, p PaymentOutcome) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, order_id, razorpay_order_id, razorpay_payment_id, amount, currency, method, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, table)
	_, err := c.db.ExecContext(ctx, query,
		p.ID, p.OrderID, p.RazorpayOrderID, p.RazorpayPaymentID,
		p.Amount, p.Currency, p.Method, p.Status, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting into %s: %w", table, err)
	}
	return nil
}

// HasOutcomeForGatewayOrder reports whether a terminal outcome already exists
// for the given razorpay order id. This is the durable idempotency check:
// unlike the cache entry it survives the 24h staging TTL.
func (c *Conf) HasOutcomeForGatewayOrder(ctx context.Context, razorpayOrderID string) (bool, error) {
	var exists bool
	err := c.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM successful_payments WHERE razorpay_order_id = $1
			UNION ALL
			SELECT 1 FROM failed_payments WHERE razorpay_order_id = $1
		)
	`, razorpayOrderID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking payment outcome: %w", err)
	}
	return exists, nil
}

func (c *Conf) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}

	if err := fn(tx); err != nil {
		if er := tx.Rollback(); er != nil && !errors.Is(er, sql.ErrTxDone) {
			return fmt.Errorf("failed to rollback withTx: %w", err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit withTx: %w", err)
	}
	return nil
}
