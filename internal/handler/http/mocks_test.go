package http_test

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/vasiliy-maslov/art-gallery/internal/account"
	"github.com/vasiliy-maslov/art-gallery/internal/artwork"
	galleryHttp "github.com/vasiliy-maslov/art-gallery/internal/handler/http"
	"github.com/vasiliy-maslov/art-gallery/internal/message"
	"github.com/vasiliy-maslov/art-gallery/internal/order"
	"github.com/vasiliy-maslov/art-gallery/internal/session"
)

const (
	adminToken = "admin-token"
	userToken  = "user-token"
	testUserID = "6a1f6a4e-7c1e-4f43-9d55-2f0c7f1b9b01"
)

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) CreateOrder(ctx context.Context, in order.CreateInput) (*order.Order, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) ListOrders(ctx context.Context, filter order.ListFilter) (*order.Page, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Page), args.Error(1)
}

func (m *MockOrderService) ListUserOrders(ctx context.Context, userID string) ([]order.Order, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrderService) GetOrder(ctx context.Context, orderID string) (*order.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) UpdateOrder(ctx context.Context, orderID string, in order.UpdateInput) (*order.Order, error) {
	args := m.Called(ctx, orderID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

type MockArtworkService struct {
	mock.Mock
}

func (m *MockArtworkService) CreateArtwork(ctx context.Context, input *artwork.Artwork) (*artwork.Artwork, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*artwork.Artwork), args.Error(1)
}

func (m *MockArtworkService) ListArtworks(ctx context.Context, status, state string) ([]artwork.Artwork, error) {
	args := m.Called(ctx, status, state)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]artwork.Artwork), args.Error(1)
}

func (m *MockArtworkService) GetArtwork(ctx context.Context, id uuid.UUID) (*artwork.Artwork, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*artwork.Artwork), args.Error(1)
}

func (m *MockArtworkService) UpdateArtwork(ctx context.Context, id uuid.UUID, patch artwork.Patch) (*artwork.Artwork, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*artwork.Artwork), args.Error(1)
}

func (m *MockArtworkService) DeleteArtwork(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) Register(ctx context.Context, name, email, password string) (*account.User, error) {
	args := m.Called(ctx, name, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.User), args.Error(1)
}

func (m *MockAccountService) AuthenticateUser(ctx context.Context, email, password string) (*account.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.User), args.Error(1)
}

func (m *MockAccountService) CreateAdmin(ctx context.Context, username, email, password string) (*account.Admin, error) {
	args := m.Called(ctx, username, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Admin), args.Error(1)
}

func (m *MockAccountService) AuthenticateAdmin(ctx context.Context, username, password string) (*account.Admin, error) {
	args := m.Called(ctx, username, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Admin), args.Error(1)
}

type MockSessionService struct {
	mock.Mock
}

func (m *MockSessionService) Create(ctx context.Context, role session.Role, data session.UserData, ttl time.Duration) (*session.Session, error) {
	args := m.Called(ctx, role, data, ttl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Session), args.Error(1)
}

func (m *MockSessionService) CreateAdmin(ctx context.Context, data session.UserData, ttl time.Duration) (*session.Session, error) {
	args := m.Called(ctx, data, ttl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Session), args.Error(1)
}

func (m *MockSessionService) Validate(ctx context.Context, token string) (*session.Session, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Session), args.Error(1)
}

func (m *MockSessionService) Destroy(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockSessionService) Sweep(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type MockMessageService struct {
	mock.Mock
}

func (m *MockMessageService) Submit(ctx context.Context, msg *message.Message) (*message.Message, error) {
	args := m.Called(ctx, msg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*message.Message), args.Error(1)
}

func (m *MockMessageService) List(ctx context.Context) ([]message.Message, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]message.Message), args.Error(1)
}

func (m *MockMessageService) Delete(ctx context.Context, id uuid.UUID) (*message.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*message.Message), args.Error(1)
}

type MockMediaStore struct {
	mock.Mock
}

func (m *MockMediaStore) Save(src io.Reader) (string, error) {
	args := m.Called(src)
	return args.String(0), args.Error(1)
}

func (m *MockMediaStore) Delete(src string) error {
	args := m.Called(src)
	return args.Error(0)
}

// newSessions returns a session mock that knows one admin and one user token.
func newSessions() *MockSessionService {
	sessions := new(MockSessionService)
	sessions.On("Validate", mock.Anything, adminToken).Return(&session.Session{
		Token:     adminToken,
		UserID:    "admin-1",
		Role:      session.RoleAdmin,
		UserData:  session.UserData{ID: "admin-1", Username: "batuk", Role: session.RoleAdmin},
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil).Maybe()
	sessions.On("Validate", mock.Anything, userToken).Return(&session.Session{
		Token:     userToken,
		UserID:    testUserID,
		Role:      session.RoleUser,
		UserData:  session.UserData{ID: testUserID, Name: "Jane", Email: "jane@example.com", Role: session.RoleUser},
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil).Maybe()
	return sessions
}

func newGuards(sessions session.Service) galleryHttp.Guards {
	return galleryHttp.NewGuards(galleryHttp.NewAuthenticator(sessions), galleryHttp.NewRateLimiter(1000, 1000))
}

func withAdmin(r *http.Request) *http.Request {
	r.AddCookie(&http.Cookie{Name: galleryHttp.AdminCookie, Value: adminToken})
	return r
}

func withUser(r *http.Request) *http.Request {
	r.AddCookie(&http.Cookie{Name: galleryHttp.UserCookie, Value: userToken})
	return r
}
