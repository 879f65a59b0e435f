package order_test

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/art-gallery/internal/apperr"
	"github.com/vasiliy-maslov/art-gallery/internal/artwork"
	"github.com/vasiliy-maslov/art-gallery/internal/order"
)

// passthroughTx runs fn directly; the fakes below do their own locking.
type passthroughTx struct{}

func (passthroughTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeCatalog struct {
	mu        sync.Mutex
	artworks  map[string]*artwork.Artwork
	failUIDs  map[string]bool
	markCalls int
}

func newFakeCatalog(items ...artwork.Artwork) *fakeCatalog {
	c := &fakeCatalog{artworks: map[string]*artwork.Artwork{}, failUIDs: map[string]bool{}}
	for i := range items {
		a := items[i]
		c.artworks[a.UID] = &a
	}
	return c
}

func (c *fakeCatalog) GetByUIDs(ctx context.Context, uids []string) ([]artwork.Artwork, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := []artwork.Artwork{}
	for _, uid := range uids {
		if a, ok := c.artworks[uid]; ok {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (c *fakeCatalog) MarkSold(ctx context.Context, uid, orderID string, soldAt time.Time) (artwork.MarkOutcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.markCalls++
	if c.failUIDs[uid] {
		return 0, errors.New("connection lost")
	}
	a, ok := c.artworks[uid]
	if !ok {
		return artwork.NotInCatalog, nil
	}
	if a.Status == artwork.StatusSold {
		return artwork.AlreadySold, nil
	}
	a.Status = artwork.StatusSold
	a.OrderID = orderID
	a.SoldDate = &soldAt
	return artwork.MarkedSold, nil
}

func (c *fakeCatalog) get(uid string) artwork.Artwork {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.artworks[uid]
}

type fakeRepository struct {
	mu         sync.Mutex
	orders     map[string]*order.Order
	createErrs []error
	creates    int
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{orders: map[string]*order.Order{}}
}

func (r *fakeRepository) Create(ctx context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.creates++
	if r.creates <= len(r.createErrs) {
		return r.createErrs[r.creates-1]
	}
	if _, ok := r.orders[o.OrderID]; ok {
		return order.ErrDuplicateOrderID
	}
	cp := *o
	cp.Items = slices.Clone(o.Items)
	r.orders[o.OrderID] = &cp
	return nil
}

func (r *fakeRepository) List(ctx context.Context, f order.ListFilter) (*order.Page, error) {
	return nil, errors.New("not expected")
}

func (r *fakeRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []order.Order
	for _, o := range r.orders {
		if o.User.ID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (r *fakeRepository) GetByOrderID(ctx context.Context, orderID string) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[orderID]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *fakeRepository) GetForUpdate(ctx context.Context, orderID string) (*order.Order, error) {
	return r.GetByOrderID(ctx, orderID)
}

func (r *fakeRepository) UpdateStatuses(ctx context.Context, orderID string, status *order.Status, ps *order.PaymentStatus) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[orderID]
	if !ok {
		return nil, order.ErrNotFound
	}
	if status != nil {
		o.Status = *status
	}
	if ps != nil {
		o.PaymentInfo.Status = *ps
	}
	cp := *o
	return &cp, nil
}

func sunset() artwork.Artwork {
	return artwork.Artwork{
		UID:    "bt-pt-25-001",
		Title:  "Sunset",
		Artist: "Batuk",
		Price:  "KES 5000",
		Src:    "/media/sunset.jpg",
		Status: artwork.StatusAvailable,
	}
}

func total(v float64) *float64 {
	return &v
}

func janeInput(code string) order.CreateInput {
	return order.CreateInput{
		User:            &order.Customer{ID: "u-1", Name: "Jane", Email: "jane@example.com"},
		Items:           []order.Item{{UID: "bt-pt-25-001", Price: "KES 5000"}},
		ShippingInfo:    &order.ShippingInfo{FullName: "Jane Doe", Phone: "0712345678", Address: "1 Moi Ave", City: "Nairobi"},
		Total:           total(5000),
		TransactionCode: code,
	}
}

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newService(repo order.Repository, catalog order.Catalog, opts ...order.Option) order.Service {
	opts = append([]order.Option{order.WithClock(func() time.Time { return fixedNow })}, opts...)
	return order.NewService(repo, catalog, passthroughTx{}, opts...)
}

func TestOrderService_CreateOrder_PaidMarksArtworkSold(t *testing.T) {
	catalog := newFakeCatalog(sunset())
	repo := newFakeRepository()
	svc := newService(repo, catalog)

	o, err := svc.CreateOrder(context.Background(), janeInput("KM52DRT8Q7"))
	require.NoError(t, err)

	assert.Equal(t, order.PaymentPaid, o.PaymentInfo.Status)
	assert.Equal(t, order.StatusConfirmed, o.Status)
	assert.Equal(t, "KM52DRT8Q7", o.PaymentInfo.TransactionCode)
	assert.Equal(t, "mpesa", o.PaymentInfo.Method)
	assert.Equal(t, 5000.0, o.PaymentInfo.Amount)
	assert.Equal(t, "Kenya", o.ShippingInfo.Country)
	assert.Equal(t, "0712345678", o.User.Phone)

	a := catalog.get("bt-pt-25-001")
	assert.Equal(t, artwork.StatusSold, a.Status)
	assert.Equal(t, o.OrderID, a.OrderID)
	require.NotNil(t, a.SoldDate)
	assert.Equal(t, fixedNow, *a.SoldDate)

	stored, err := repo.GetByOrderID(context.Background(), o.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "Sunset", stored.Items[0].Title, "snapshot is refreshed from the catalog")
}

func TestOrderService_CreateOrder_WithoutCodeStaysPending(t *testing.T) {
	catalog := newFakeCatalog(sunset())
	svc := newService(newFakeRepository(), catalog)

	o, err := svc.CreateOrder(context.Background(), janeInput(""))
	require.NoError(t, err)

	assert.Equal(t, order.PaymentPending, o.PaymentInfo.Status)
	assert.Equal(t, order.StatusPending, o.Status)
	assert.Equal(t, artwork.StatusAvailable, catalog.get("bt-pt-25-001").Status)
	assert.Zero(t, catalog.markCalls)
}

func TestOrderService_CreateOrder_Validation(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(in *order.CreateInput)
		wantField string
	}{
		{name: "missing_user", mutate: func(in *order.CreateInput) { in.User = nil }, wantField: "user"},
		{name: "missing_items", mutate: func(in *order.CreateInput) { in.Items = nil }, wantField: "items"},
		{name: "missing_shipping", mutate: func(in *order.CreateInput) { in.ShippingInfo = nil }, wantField: "shippingInfo"},
		{name: "missing_total", mutate: func(in *order.CreateInput) { in.Total = nil }, wantField: "total"},
		{name: "negative_total", mutate: func(in *order.CreateInput) { in.Total = total(-1) }, wantField: "total"},
		{
			name: "duplicate_uid",
			mutate: func(in *order.CreateInput) {
				in.Items = append(in.Items, order.Item{UID: "bt-pt-25-001", Price: "KES 5000"})
				in.Total = total(10000)
			},
			wantField: "items",
		},
		{name: "total_mismatch", mutate: func(in *order.CreateInput) { in.Total = total(4000) }, wantField: "total"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog := newFakeCatalog(sunset())
			repo := newFakeRepository()
			svc := newService(repo, catalog)

			in := janeInput("KM52DRT8Q7")
			tt.mutate(&in)

			_, err := svc.CreateOrder(context.Background(), in)

			var vErr *apperr.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.wantField, vErr.Field)
			assert.Empty(t, repo.orders)
			assert.Equal(t, artwork.StatusAvailable, catalog.get("bt-pt-25-001").Status)
		})
	}
}

func TestOrderService_CreateOrder_TotalVerificationOptions(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		svc := newService(newFakeRepository(), newFakeCatalog(sunset()), order.WithVerifyTotal(false))
		in := janeInput("")
		in.Total = total(1)
		_, err := svc.CreateOrder(context.Background(), in)
		assert.NoError(t, err)
	})

	t.Run("unparseable_price_skips_check", func(t *testing.T) {
		svc := newService(newFakeRepository(), newFakeCatalog())
		in := janeInput("")
		in.Items = []order.Item{{UID: "xx-sc-25-001", Price: "Price on request"}}
		in.Total = total(123)
		_, err := svc.CreateOrder(context.Background(), in)
		assert.NoError(t, err)
	})
}

func TestOrderService_CreateOrder_FractionalPrices(t *testing.T) {
	first := sunset()
	first.Price = "KES 10.10"
	second := sunset()
	second.UID = "bt-pt-25-002"
	second.Price = "KES 20.20"

	newInput := func(sum float64) order.CreateInput {
		in := janeInput("KM52DRT8Q7")
		in.Items = []order.Item{
			{UID: "bt-pt-25-001", Price: "KES 10.10"},
			{UID: "bt-pt-25-002", Price: "KES 20.20"},
		}
		in.Total = total(sum)
		return in
	}

	t.Run("float_sum_matches", func(t *testing.T) {
		catalog := newFakeCatalog(first, second)
		svc := newService(newFakeRepository(), catalog)

		// Summed at run time this is 30.299999999999997.
		a, b := 10.10, 20.20
		o, err := svc.CreateOrder(context.Background(), newInput(a+b))
		require.NoError(t, err)
		assert.Equal(t, order.PaymentPaid, o.PaymentInfo.Status)
		assert.Equal(t, artwork.StatusSold, catalog.get("bt-pt-25-001").Status)
		assert.Equal(t, artwork.StatusSold, catalog.get("bt-pt-25-002").Status)
	})

	t.Run("off_by_a_cent", func(t *testing.T) {
		catalog := newFakeCatalog(first, second)
		svc := newService(newFakeRepository(), catalog)

		_, err := svc.CreateOrder(context.Background(), newInput(30.31))
		var vErr *apperr.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "total", vErr.Field)
		assert.Zero(t, catalog.markCalls)
	})
}

func TestOrderService_CreateOrder_SnapshotDefaults(t *testing.T) {
	svc := newService(newFakeRepository(), newFakeCatalog(), order.WithVerifyTotal(false))
	in := janeInput("")
	in.Items = []order.Item{{UID: "zz-pt-25-009"}}

	o, err := svc.CreateOrder(context.Background(), in)
	require.NoError(t, err)

	want := order.Item{
		UID:         "zz-pt-25-009",
		Title:       "Untitled Artwork",
		Artist:      "Batuk",
		Price:       "0",
		Src:         "",
		TypeCode:    "ART",
		Materials:   "Not specified",
		Duration:    "Not specified",
		Type:        "Artwork",
		Inspiration: "Not specified",
	}
	if diff := cmp.Diff([]order.Item{want}, o.Items); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
}

func TestOrderService_CreateOrder_ItemFailureDoesNotAbortOrder(t *testing.T) {
	second := sunset()
	second.UID = "bt-pt-25-002"
	catalog := newFakeCatalog(sunset(), second)
	catalog.failUIDs["bt-pt-25-001"] = true
	repo := newFakeRepository()
	svc := newService(repo, catalog)

	in := janeInput("KM52DRT8Q7")
	in.Items = append(in.Items, order.Item{UID: "bt-pt-25-002", Price: "KES 5000"})
	in.Total = total(10000)

	o, err := svc.CreateOrder(context.Background(), in)
	require.NoError(t, err)

	assert.Contains(t, repo.orders, o.OrderID)
	assert.Equal(t, artwork.StatusAvailable, catalog.get("bt-pt-25-001").Status)
	assert.Equal(t, artwork.StatusSold, catalog.get("bt-pt-25-002").Status)
	assert.Equal(t, 2, catalog.markCalls)
}

func TestOrderService_CreateOrder_RetriesTransientErrors(t *testing.T) {
	repo := newFakeRepository()
	repo.createErrs = []error{&pgconn.PgError{Code: pgerrcode.SerializationFailure}}
	svc := newService(repo, newFakeCatalog(sunset()), order.WithRetry(3, 0))

	o, err := svc.CreateOrder(context.Background(), janeInput("KM52DRT8Q7"))
	require.NoError(t, err)
	assert.Equal(t, 2, repo.creates)
	assert.Contains(t, repo.orders, o.OrderID)
}

func TestOrderService_CreateOrder_ConcurrentOrdersSellOnce(t *testing.T) {
	catalog := newFakeCatalog(sunset())
	repo := newFakeRepository()
	svc := newService(repo, catalog)

	const buyers = 2
	var wg sync.WaitGroup
	ids := make([]string, buyers)
	errs := make([]error, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			o, err := svc.CreateOrder(context.Background(), janeInput(fmt.Sprintf("CODE%d", i)))
			errs[i] = err
			if err == nil {
				ids[i] = o.OrderID
			}
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Len(t, repo.orders, buyers, "both orders persist")

	a := catalog.get("bt-pt-25-001")
	assert.Equal(t, artwork.StatusSold, a.Status)
	assert.Contains(t, ids, a.OrderID)
	assert.Equal(t, buyers, catalog.markCalls)
}

func TestOrderService_UpdateOrder(t *testing.T) {
	ctx := context.Background()
	paid := order.PaymentPaid
	shipped := order.StatusShipped
	bogus := order.Status("shipped-ish")

	setup := func(t *testing.T) (order.Service, *fakeRepository, *fakeCatalog, string) {
		t.Helper()
		catalog := newFakeCatalog(sunset())
		repo := newFakeRepository()
		svc := newService(repo, catalog)
		o, err := svc.CreateOrder(ctx, janeInput(""))
		require.NoError(t, err)
		return svc, repo, catalog, o.OrderID
	}

	t.Run("invalid_status_leaves_order_unchanged", func(t *testing.T) {
		svc, repo, _, id := setup(t)
		_, err := svc.UpdateOrder(ctx, id, order.UpdateInput{Status: &bogus, PaymentStatus: &paid})
		assert.True(t, apperr.IsValidation(err))
		assert.Equal(t, order.StatusPending, repo.orders[id].Status)
		assert.Equal(t, order.PaymentPending, repo.orders[id].PaymentInfo.Status)
	})

	t.Run("nothing_to_update", func(t *testing.T) {
		svc, _, _, id := setup(t)
		_, err := svc.UpdateOrder(ctx, id, order.UpdateInput{})
		assert.True(t, apperr.IsValidation(err))
	})

	t.Run("unknown_order", func(t *testing.T) {
		svc, _, catalog, _ := setup(t)
		_, err := svc.UpdateOrder(ctx, "ORD-0-missing", order.UpdateInput{PaymentStatus: &paid})
		assert.ErrorIs(t, err, order.ErrNotFound)
		assert.Zero(t, catalog.markCalls)
	})

	t.Run("paid_marks_items_once", func(t *testing.T) {
		svc, _, catalog, id := setup(t)

		o, err := svc.UpdateOrder(ctx, id, order.UpdateInput{PaymentStatus: &paid})
		require.NoError(t, err)
		assert.Equal(t, order.PaymentPaid, o.PaymentInfo.Status)
		assert.Equal(t, order.StatusPending, o.Status, "payment does not move the order status")
		assert.Equal(t, artwork.StatusSold, catalog.get("bt-pt-25-001").Status)
		assert.Equal(t, id, catalog.get("bt-pt-25-001").OrderID)
		assert.Equal(t, 1, catalog.markCalls)

		_, err = svc.UpdateOrder(ctx, id, order.UpdateInput{PaymentStatus: &paid, Status: &shipped})
		require.NoError(t, err)
		assert.Equal(t, 1, catalog.markCalls, "re-applying paid is a no-op")
	})
}

func TestListFilter_Normalize(t *testing.T) {
	assert.Equal(t, order.ListFilter{Page: 1, Limit: 10}, order.ListFilter{Page: -3}.Normalize())
	assert.Equal(t, order.ListFilter{Page: 2, Limit: 100}, order.ListFilter{Page: 2, Limit: 5000}.Normalize())
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{in: "KES 5000", want: "5000", ok: true},
		{in: "Ksh 12,500.50", want: "12500.5", ok: true},
		{in: "$40", want: "40", ok: true},
		{in: "750", want: "750", ok: true},
		{in: "Price on request", ok: false},
		{in: "", ok: false},
	}
	for _, tt := range tests {
		got, ok := order.ParsePrice(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		if tt.ok {
			assert.Equal(t, tt.want, got.String(), tt.in)
		}
	}
}

func TestNewOrderID(t *testing.T) {
	id, err := order.NewOrderID(fixedNow)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^ORD-1740830400000-[0-9a-z]{9}$`), id)
}
