package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrOrderNotFound = errors.New("order not found")

type Repo struct{ DB *pgxpool.Pool }

// GetOrder loads the order with its line items. Items keep their product
// as nil when the catalogue row is gone.
func (r *Repo) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	var o Order
	var status string
	err := r.DB.QueryRow(ctx, `
		SELECT id, external_id, user_id, status,
		       billing_first_name, billing_last_name, billing_email,
		       billing_phone, billing_city, billing_address_1,
		       completed_at, created_at
		FROM orders WHERE id=$1`, orderID).Scan(
		&o.ID, &o.ExternalID, &o.UserID, &status,
		&o.Billing.FirstName, &o.Billing.LastName, &o.Billing.Email,
		&o.Billing.Phone, &o.Billing.City, &o.Billing.Address1,
		&o.CompletedAt, &o.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", orderID, err)
	}
	o.Status = Status(status)

	rows, err := r.DB.Query(ctx, `
		SELECT oi.id, oi.order_id, oi.product_id, oi.name, oi.qty,
		       p.id, p.sku, p.name, p.model, p.permalink, p.image_url
		FROM order_items oi
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id=$1
		ORDER BY oi.id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order items %s: %w", orderID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var it OrderItem
		var pid, sku, name, model, link, img *string
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Name, &it.Qty,
			&pid, &sku, &name, &model, &link, &img); err != nil {
			return nil, err
		}
		if pid != nil {
			it.Product = &Product{
				ID:        *pid,
				SKU:       deref(sku),
				Name:      deref(name),
				Model:     deref(model),
				Permalink: deref(link),
				ImageURL:  deref(img),
			}
		}
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &o, nil
}

// ProductImageURL returns "" when the product or its image is missing.
func (r *Repo) ProductImageURL(ctx context.Context, productID string) (string, error) {
	var u string
	err := r.DB.QueryRow(ctx, `SELECT image_url FROM products WHERE id=$1`, productID).Scan(&u)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return u, err
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
