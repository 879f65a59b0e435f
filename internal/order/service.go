package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/art-gallery/internal/apperr"
	"github.com/vasiliy-maslov/art-gallery/internal/artwork"
	"github.com/vasiliy-maslov/art-gallery/internal/db"
)

const (
	defaultCountry = "Kenya"
	unknownUID     = "unknown"
)

type Service interface {
	CreateOrder(ctx context.Context, in CreateInput) (*Order, error)
	ListOrders(ctx context.Context, filter ListFilter) (*Page, error)
	ListUserOrders(ctx context.Context, userID string) ([]Order, error)
	GetOrder(ctx context.Context, orderID string) (*Order, error)
	UpdateOrder(ctx context.Context, orderID string, in UpdateInput) (*Order, error)
}

type Option func(*service)

func WithVerifyTotal(enabled bool) Option {
	return func(s *service) { s.verifyTotal = enabled }
}

// WithRetry bounds how often a transaction is replayed after a transient database error.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(s *service) {
		s.retries = attempts
		s.backoff = backoff
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

func WithIDGenerator(gen func(time.Time) (string, error)) Option {
	return func(s *service) { s.newID = gen }
}

type service struct {
	repo       Repository
	catalog    Catalog
	tx         db.Transactor
	reconciler *Reconciler

	verifyTotal bool
	retries     int
	backoff     time.Duration
	now         func() time.Time
	newID       func(time.Time) (string, error)
}

func NewService(repo Repository, catalog Catalog, tx db.Transactor, opts ...Option) Service {
	s := &service{
		repo:        repo,
		catalog:     catalog,
		tx:          tx,
		reconciler:  NewReconciler(catalog, tx),
		verifyTotal: true,
		retries:     1,
		now:         time.Now,
		newID:       NewOrderID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func validateCreate(in CreateInput) error {
	switch {
	case in.User == nil:
		return apperr.Missing("user")
	case len(in.Items) == 0:
		return apperr.Missing("items")
	case in.ShippingInfo == nil:
		return apperr.Missing("shippingInfo")
	case in.Total == nil || *in.Total == 0:
		return apperr.Missing("total")
	case *in.Total < 0:
		return apperr.Invalid("total", "must be positive")
	}

	seen := make(map[string]bool, len(in.Items))
	for _, it := range in.Items {
		uid := strings.TrimSpace(it.UID)
		if uid == "" {
			continue
		}
		if seen[uid] {
			return apperr.Invalid("items", fmt.Sprintf("artwork %s appears more than once", uid))
		}
		seen[uid] = true
	}
	return nil
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}

func snapshotItem(it Item) Item {
	return Item{
		UID:         orDefault(it.UID, unknownUID),
		Title:       orDefault(it.Title, "Untitled Artwork"),
		Artist:      orDefault(it.Artist, "Batuk"),
		Price:       orDefault(it.Price, "0"),
		Src:         strings.TrimSpace(it.Src),
		TypeCode:    orDefault(it.TypeCode, "ART"),
		Materials:   orDefault(it.Materials, "Not specified"),
		Duration:    orDefault(it.Duration, "Not specified"),
		Type:        orDefault(it.Type, "Artwork"),
		Inspiration: orDefault(it.Inspiration, "Not specified"),
	}
}

func (s *service) CreateOrder(ctx context.Context, in CreateInput) (*Order, error) {
	if err := validateCreate(in); err != nil {
		log.Warn().Err(err).Msg("service: rejected order")
		return nil, err
	}

	now := s.now()
	orderID, err := s.newID(now)
	if err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}

	paymentStatus, status := PaymentPending, StatusPending
	txCode := strings.TrimSpace(in.TransactionCode)
	if txCode != "" {
		paymentStatus, status = PaymentPaid, StatusConfirmed
	}

	ship := *in.ShippingInfo
	ship.Country = orDefault(ship.Country, defaultCountry)

	user := *in.User
	if user.Phone == "" {
		user.Phone = ship.Phone
	}

	o := &Order{
		OrderID:      orderID,
		User:         user,
		ShippingInfo: ship,
		PaymentInfo: PaymentInfo{
			Method:          PaymentMethodMpesa,
			TransactionCode: txCode,
			Status:          paymentStatus,
			Amount:          *in.Total,
		},
		Status: status,
		Total:  *in.Total,
	}

	var outcomes map[string]artwork.MarkOutcome
	err = db.Retry(ctx, s.retries, s.backoff, func(ctx context.Context) error {
		return s.tx.WithinTx(ctx, func(ctx context.Context) error {
			outcomes = nil
			items, err := s.snapshotItems(ctx, in.Items)
			if err != nil {
				return err
			}
			o.Items = items

			if s.verifyTotal {
				if err := verifyTotal(o.Items, o.Total); err != nil {
					return err
				}
			}

			if err := s.repo.Create(ctx, o); err != nil {
				return err
			}

			if o.PaymentInfo.Status == PaymentPaid {
				outcomes = s.reconciler.MarkItemsSold(ctx, o, now)
			}
			return nil
		})
	})
	if err != nil {
		if apperr.IsValidation(err) {
			log.Warn().Err(err).Str("order_id", orderID).Msg("service: rejected order")
			return nil, err
		}
		log.Error().Err(err).Str("order_id", orderID).Msg("service: failed to create order")
		return nil, fmt.Errorf("service: failed to create order: %w", err)
	}

	sold, skipped := saleCounts(outcomes)
	log.Info().
		Str("order_id", o.OrderID).
		Int("items", len(o.Items)).
		Int("items_sold", sold).
		Int("items_skipped", skipped).
		Stringer("payment_status", o.PaymentInfo.Status).
		Bool("has_transaction_code", txCode != "").
		Msg("service: order created")
	return o, nil
}

// snapshotItems copies the submitted items, preferring catalog values where the uid is known.
func (s *service) snapshotItems(ctx context.Context, submitted []Item) ([]Item, error) {
	items := make([]Item, len(submitted))
	uids := make([]string, 0, len(submitted))
	for i, it := range submitted {
		items[i] = snapshotItem(it)
		uids = append(uids, items[i].UID)
	}

	artworks, err := s.catalog.GetByUIDs(ctx, uids)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog for order items: %w", err)
	}

	for _, a := range artworks {
		for i := range items {
			if items[i].UID != a.UID {
				continue
			}
			it := &items[i]
			it.Title = orDefault(a.Title, it.Title)
			it.Artist = orDefault(a.Artist, it.Artist)
			it.Price = orDefault(a.Price, it.Price)
			it.Src = orDefault(a.Src, it.Src)
			it.TypeCode = orDefault(a.TypeCode, it.TypeCode)
			it.Materials = orDefault(a.Materials, it.Materials)
			it.Duration = orDefault(a.Duration, it.Duration)
			it.Type = orDefault(a.Type, it.Type)
			it.Inspiration = orDefault(a.Inspiration, it.Inspiration)
		}
	}
	return items, nil
}

func (s *service) ListOrders(ctx context.Context, filter ListFilter) (*Page, error) {
	filter = filter.Normalize()
	if filter.Status != "" && filter.Status != "all" && !Status(filter.Status).Valid() {
		return nil, apperr.Invalid("status", fmt.Sprintf("unknown status %q", filter.Status))
	}

	page, err := s.repo.List(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list orders")
		return nil, fmt.Errorf("service: failed to list orders: %w", err)
	}
	return page, nil
}

func (s *service) ListUserOrders(ctx context.Context, userID string) ([]Order, error) {
	orders, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("service: failed to fetch user orders")
		return nil, fmt.Errorf("service: failed to fetch user orders: %w", err)
	}
	return orders, nil
}

func (s *service) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	o, err := s.repo.GetByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		log.Error().Err(err).Str("order_id", orderID).Msg("service: failed to fetch order")
		return nil, fmt.Errorf("service: failed to fetch order: %w", err)
	}
	return o, nil
}

func (s *service) UpdateOrder(ctx context.Context, orderID string, in UpdateInput) (*Order, error) {
	if orderID == "" {
		return nil, apperr.Missing("orderId")
	}
	if in.Status == nil && in.PaymentStatus == nil {
		return nil, apperr.Invalid("", "status or paymentStatus is required")
	}
	if in.Status != nil && !in.Status.Valid() {
		return nil, apperr.Invalid("status", fmt.Sprintf("invalid status %q", *in.Status))
	}
	if in.PaymentStatus != nil && !in.PaymentStatus.Valid() {
		return nil, apperr.Invalid("paymentStatus", fmt.Sprintf("invalid payment status %q", *in.PaymentStatus))
	}

	var updated *Order
	var outcomes map[string]artwork.MarkOutcome
	err := db.Retry(ctx, s.retries, s.backoff, func(ctx context.Context) error {
		return s.tx.WithinTx(ctx, func(ctx context.Context) error {
			outcomes = nil
			current, err := s.repo.GetForUpdate(ctx, orderID)
			if err != nil {
				return err
			}

			updated, err = s.repo.UpdateStatuses(ctx, orderID, in.Status, in.PaymentStatus)
			if err != nil {
				return err
			}

			becamePaid := in.PaymentStatus != nil && *in.PaymentStatus == PaymentPaid &&
				current.PaymentInfo.Status != PaymentPaid
			if becamePaid {
				outcomes = s.reconciler.MarkItemsSold(ctx, updated, s.now())
			}
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Warn().Str("order_id", orderID).Msg("service: order not found, cannot update")
			return nil, ErrNotFound
		}
		log.Error().Err(err).Str("order_id", orderID).Msg("service: failed to update order")
		return nil, fmt.Errorf("service: failed to update order: %w", err)
	}

	sold, skipped := saleCounts(outcomes)
	log.Info().
		Str("order_id", orderID).
		Stringer("status", updated.Status).
		Stringer("payment_status", updated.PaymentInfo.Status).
		Int("items_sold", sold).
		Int("items_skipped", skipped).
		Msg("service: order updated")
	return updated, nil
}
