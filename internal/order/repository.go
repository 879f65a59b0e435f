package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/art-gallery/internal/db"
)

var (
	ErrNotFound         = errors.New("order not found")
	ErrDuplicateOrderID = errors.New("order with this ID already exists")
)

type Repository interface {
	Create(ctx context.Context, order *Order) error
	List(ctx context.Context, filter ListFilter) (*Page, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	GetByOrderID(ctx context.Context, orderID string) (*Order, error)
	GetForUpdate(ctx context.Context, orderID string) (*Order, error)
	UpdateStatuses(ctx context.Context, orderID string, status *Status, paymentStatus *PaymentStatus) (*Order, error)
}

type postgresRepository struct {
	db db.Querier
}

func NewRepository(q db.Querier) Repository {
	return &postgresRepository{db: q}
}

const orderColumns = `order_id, user_id, user_name, user_email, user_phone,
	ship_full_name, ship_email, ship_phone, ship_address, ship_city, ship_country,
	payment_method, transaction_code, payment_status, payment_amount,
	status, total, created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var txCode *string
	err := row.Scan(
		&o.OrderID,
		&o.User.ID,
		&o.User.Name,
		&o.User.Email,
		&o.User.Phone,
		&o.ShippingInfo.FullName,
		&o.ShippingInfo.Email,
		&o.ShippingInfo.Phone,
		&o.ShippingInfo.Address,
		&o.ShippingInfo.City,
		&o.ShippingInfo.Country,
		&o.PaymentInfo.Method,
		&txCode,
		&o.PaymentInfo.Status,
		&o.PaymentInfo.Amount,
		&o.Status,
		&o.Total,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if txCode != nil {
		o.PaymentInfo.TransactionCode = *txCode
	}
	o.Items = []Item{}
	return &o, nil
}

func (r *postgresRepository) Create(ctx context.Context, o *Order) error {
	conn := db.Conn(ctx, r.db)

	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now

	var txCode *string
	if o.PaymentInfo.TransactionCode != "" {
		txCode = &o.PaymentInfo.TransactionCode
	}

	queryOrder := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`
	_, err := conn.Exec(ctx, queryOrder,
		o.OrderID,
		o.User.ID,
		o.User.Name,
		o.User.Email,
		o.User.Phone,
		o.ShippingInfo.FullName,
		o.ShippingInfo.Email,
		o.ShippingInfo.Phone,
		o.ShippingInfo.Address,
		o.ShippingInfo.City,
		o.ShippingInfo.Country,
		o.PaymentInfo.Method,
		txCode,
		o.PaymentInfo.Status,
		o.PaymentInfo.Amount,
		o.Status,
		o.Total,
		o.CreatedAt,
		o.UpdatedAt,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrDuplicateOrderID
		}
		return fmt.Errorf("repository: failed to insert order %s: %w", o.OrderID, err)
	}

	queryItem := `
		INSERT INTO order_items (order_id, position, uid, title, artist, price, src,
			type_code, materials, duration, type, inspiration)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	for i, item := range o.Items {
		_, err = conn.Exec(ctx, queryItem,
			o.OrderID, i, item.UID, item.Title, item.Artist, item.Price, item.Src,
			item.TypeCode, item.Materials, item.Duration, item.Type, item.Inspiration,
		)
		if err != nil {
			return fmt.Errorf("repository: failed to insert order item %s for order %s: %w", item.UID, o.OrderID, err)
		}
	}

	return nil
}

// loadItems fills Items for every order in one query.
func (r *postgresRepository) loadItems(ctx context.Context, orders []*Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, len(orders))
	byID := make(map[string]*Order, len(orders))
	for i, o := range orders {
		ids[i] = o.OrderID
		byID[o.OrderID] = o
	}

	query := `
		SELECT order_id, uid, title, artist, price, src, type_code, materials, duration, type, inspiration
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position
	`
	rows, err := db.Conn(ctx, r.db).Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("repository: failed to query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var orderID string
		var it Item
		if err := rows.Scan(&orderID, &it.UID, &it.Title, &it.Artist, &it.Price, &it.Src,
			&it.TypeCode, &it.Materials, &it.Duration, &it.Type, &it.Inspiration); err != nil {
			return fmt.Errorf("repository: failed to scan order item: %w", err)
		}
		if o, ok := byID[orderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("repository: error iterating order items: %w", err)
	}
	return nil
}

func (r *postgresRepository) collectOrders(ctx context.Context, rows pgx.Rows) ([]Order, error) {
	var ptrs []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			log.Error().Err(err).Msg("repository: failed to scan order row")
			return nil, fmt.Errorf("repository: failed to scan order: %w", err)
		}
		ptrs = append(ptrs, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating orders: %w", err)
	}

	if err := r.loadItems(ctx, ptrs); err != nil {
		return nil, err
	}

	orders := make([]Order, 0, len(ptrs))
	for _, o := range ptrs {
		orders = append(orders, *o)
	}
	return orders, nil
}

func (r *postgresRepository) List(ctx context.Context, filter ListFilter) (*Page, error) {
	filter = filter.Normalize()
	conn := db.Conn(ctx, r.db)

	status := filter.Status
	if status == "all" {
		status = ""
	}

	var total int
	err := conn.QueryRow(ctx, `SELECT count(*) FROM orders WHERE ($1 = '' OR status = $1)`, status).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to count orders: %w", err)
	}

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := conn.Query(ctx, query, status, filter.Limit, (filter.Page-1)*filter.Limit)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query orders: %w", err)
	}

	orders, err := r.collectOrders(ctx, rows)
	if err != nil {
		return nil, err
	}

	return &Page{
		Orders:     orders,
		Pagination: newPagination(filter.Page, filter.Limit, total),
	}, nil
}

func (r *postgresRepository) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := db.Conn(ctx, r.db).Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query orders of user %s: %w", userID, err)
	}
	return r.collectOrders(ctx, rows)
}

func (r *postgresRepository) getOne(ctx context.Context, query, orderID string) (*Order, error) {
	o, err := scanOrder(db.Conn(ctx, r.db).QueryRow(ctx, query, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order %s: %w", orderID, err)
	}
	if err := r.loadItems(ctx, []*Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *postgresRepository) GetByOrderID(ctx context.Context, orderID string) (*Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_id = $1`, orderID)
}

// GetForUpdate locks the order row until the surrounding transaction ends.
func (r *postgresRepository) GetForUpdate(ctx context.Context, orderID string) (*Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_id = $1 FOR UPDATE`, orderID)
}

func (r *postgresRepository) UpdateStatuses(ctx context.Context, orderID string, status *Status, paymentStatus *PaymentStatus) (*Order, error) {
	query := `
		UPDATE orders SET
			status         = COALESCE($2, status),
			payment_status = COALESCE($3, payment_status),
			updated_at     = $4
		WHERE order_id = $1
		RETURNING ` + orderColumns

	o, err := scanOrder(db.Conn(ctx, r.db).QueryRow(ctx, query, orderID, status, paymentStatus, time.Now().UTC()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to update order %s: %w", orderID, err)
	}
	if err := r.loadItems(ctx, []*Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}
