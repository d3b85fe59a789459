package ginserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"stayfinder/internal/app/authz"
	"stayfinder/internal/app/bus"
	"stayfinder/internal/app/dto"
	bookingapp "stayfinder/internal/app/handlers/booking"
	listingapp "stayfinder/internal/app/handlers/listings"
	"stayfinder/internal/app/middleware"
	authsvc "stayfinder/internal/app/services/auth"
	domainavailability "stayfinder/internal/domain/availability"
	domainbooking "stayfinder/internal/domain/booking"
	domainlistings "stayfinder/internal/domain/listings"
	"stayfinder/internal/infra/obs"
	"stayfinder/internal/infra/ratelimit"
	"stayfinder/internal/infra/security"
	"stayfinder/internal/infra/storage/memory"
)

type photoStub struct{}

func (photoStub) Upload(_ context.Context, key string, reader io.Reader, _ int64, _ string) (string, error) {
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return "", err
	}
	return "https://cdn.example.com/" + key, nil
}

type apiClient struct {
	t      *testing.T
	router *gin.Engine
}

func newAPI(t *testing.T, limiter Limiter) *apiClient {
	t.Helper()
	listings := memory.NewListingRepository()
	bookings := memory.NewBookingRepository()
	box := memory.NewOutbox()

	commands := bus.NewInMemoryBus()
	queries := bus.NewInMemoryBus()
	bookingapp.RegisterCommands(commands, bookingapp.Deps{Outbox: box})
	bookingapp.RegisterQueries(queries)
	listingapp.RegisterCommands(commands, listingapp.Deps{Outbox: box, Photos: photoStub{}})
	listingapp.RegisterQueries(queries)

	pipeline := middleware.Pipeline{
		Authorizer:  authz.RoleAuthorizer{},
		Validator:   middleware.NewStructValidator(),
		Idempotency: memory.NewIdempotencyStore(),
		Locker:      memory.NewKeyedLocker(),
		Factory:     memory.Factory{ListingsRepo: listings, BookingsRepo: bookings},
		Outbox:      box,
	}
	commandBus := pipeline.Commands(commands)
	queryBus := pipeline.Queries(queries)

	auth := &authsvc.Service{
		Users:     memory.NewUserRepository(),
		Passwords: security.BcryptHasher{Cost: bcrypt.MinCost},
		Tokens:    security.NewJWTIssuer("test-secret", time.Hour),
	}
	handlers := Handlers{
		Auth:     &AuthHandler{Service: auth},
		Listings: &ListingHandler{Commands: commandBus, Queries: queryBus},
		Bookings: &BookingHandler{Commands: commandBus, Queries: queryBus},
		Resolver: auth,
	}
	if limiter != nil {
		handlers.RateLimit = &RateLimit{Limiter: limiter}
	}
	router := NewRouter(Options{Env: "test"}, obs.Middleware{}, obs.HealthHandlers{}, handlers)
	return &apiClient{t: t, router: router}
}

func (a *apiClient) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (a *apiClient) register(email string, host bool) string {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"email": email, "password": "password1", "first_name": "Test", "last_name": "User", "want_to_host": host,
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[dto.AuthResponse](a.t, rec).Token
}

func (a *apiClient) createListing(token string) dto.Listing {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/listings", token, gin.H{
		"title":         "Lake cabin",
		"description":   "Wooden cabin with a private jetty on the lake.",
		"property_type": "cabin",
		"room_type":     "entire",
		"location":      gin.H{"address": "12 Rue du Lac", "city": "Annecy", "state": "Haute-Savoie", "country": "France"},
		"price":         gin.H{"base": 10000, "cleaning_fee": 2000, "service_fee": 1000},
		"max_guests":    4,
		"bedrooms":      2,
		"beds":          3,
		"bathrooms":     1,
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[dto.Listing](a.t, rec)
}

func TestBookingFlowOverHTTP(t *testing.T) {
	a := newAPI(t, nil)
	hostToken := a.register("host@example.com", true)
	guestToken := a.register("guest@example.com", false)
	otherToken := a.register("other@example.com", false)
	listing := a.createListing(hostToken)
	assert.Equal(t, "USD", listing.Price.Currency)

	rec := a.do(http.MethodPost, "/api/bookings", guestToken, gin.H{
		"listing_id": listing.ID, "check_in": "2026-09-01", "check_out": "2026-09-04", "guests": 2,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	booking := decode[dto.Booking](t, rec)
	assert.Equal(t, int64(33000), booking.TotalPrice)
	assert.Equal(t, "pending", booking.Status)
	assert.Equal(t, "Lake cabin", booking.Listing.Title)

	rec = a.do(http.MethodPost, "/api/bookings", otherToken, gin.H{
		"listing_id": listing.ID, "check_in": "2026-09-04T00:00:00Z", "check_out": "2026-09-06T00:00:00Z", "guests": 1,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "not available")

	rec = a.do(http.MethodGet, "/api/listings?location=annecy&check_in=2026-09-03&check_out=2026-09-05", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[dto.ListingPage](t, rec).Total)

	rec = a.do(http.MethodGet, "/api/listings?location=annecy&check_in=2026-09-10&check_out=2026-09-12", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[dto.ListingPage](t, rec).Total)

	rec = a.do(http.MethodPut, "/api/bookings/"+booking.ID+"/status", guestToken, gin.H{"status": "confirmed"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(http.MethodPut, "/api/bookings/"+booking.ID+"/status", hostToken, gin.H{"status": "Confirmed"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "confirmed", decode[dto.Booking](t, rec).Status)

	rec = a.do(http.MethodGet, "/api/bookings/"+booking.ID, otherToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(http.MethodPost, "/api/bookings/"+booking.ID+"/pay", guestToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "paid", decode[dto.Booking](t, rec).PaymentStatus)

	rec = a.do(http.MethodGet, "/api/bookings/my-bookings", guestToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[dto.BookingCollection](t, rec).Items, 1)

	rec = a.do(http.MethodGet, "/api/bookings/host/bookings?status=confirmed", hostToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[dto.BookingCollection](t, rec).Items, 1)
}

func TestBookingRequestValidation(t *testing.T) {
	a := newAPI(t, nil)
	hostToken := a.register("host@example.com", true)
	guestToken := a.register("guest@example.com", false)
	listing := a.createListing(hostToken)

	rec := a.do(http.MethodPost, "/api/bookings", "", gin.H{"listing_id": listing.ID, "check_in": "2026-09-01", "check_out": "2026-09-04"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(http.MethodPost, "/api/bookings", "not-a-token", gin.H{"listing_id": listing.ID, "check_in": "2026-09-01", "check_out": "2026-09-04"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(http.MethodPost, "/api/bookings", guestToken, gin.H{"listing_id": listing.ID, "check_in": "01/09/2026", "check_out": "2026-09-04"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPost, "/api/bookings", guestToken, gin.H{"listing_id": listing.ID, "check_in": "2026-09-04", "check_out": "2026-09-04"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPost, "/api/bookings", guestToken, gin.H{"listing_id": listing.ID, "check_in": "2026-09-01", "check_out": "2026-09-04", "guests": 9})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "exceeds")

	rec = a.do(http.MethodPost, "/api/bookings", guestToken, gin.H{"listing_id": "missing", "check_in": "2026-09-01", "check_out": "2026-09-04"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListingOwnership(t *testing.T) {
	a := newAPI(t, nil)
	ownerToken := a.register("owner@example.com", true)
	rivalToken := a.register("rival@example.com", true)
	guestToken := a.register("guest@example.com", false)
	listing := a.createListing(ownerToken)

	rec := a.do(http.MethodPost, "/api/listings", guestToken, gin.H{"title": "Guest listing"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(http.MethodDelete, "/api/listings/"+listing.ID, rivalToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(http.MethodGet, "/api/listings/host/my-listings", ownerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[dto.ListingCollection](t, rec).Items, 1)

	rec = a.do(http.MethodDelete, "/api/listings/"+listing.ID, ownerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(http.MethodGet, "/api/listings/"+listing.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBecomeHostUnlocksListingCreation(t *testing.T) {
	a := newAPI(t, nil)
	token := a.register("late@example.com", false)

	rec := a.do(http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"guest"}, decode[dto.UserProfile](t, rec).Roles)

	rec = a.do(http.MethodPut, "/api/auth/become-host", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, decode[dto.AuthResponse](t, rec).User.Roles, "host")

	a.createListing(token)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	a := newAPI(t, nil)
	a.register("ana@example.com", false)

	rec := a.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "ana@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "ANA@example.com", "password": "password1"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUploadPhoto(t *testing.T) {
	a := newAPI(t, nil)
	token := a.register("host@example.com", true)
	listing := a.createListing(token)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("photo", "cabin.png")
	require.NoError(t, err)
	_, err = part.Write(append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/listings/"+listing.ID+"/photos", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	updated := decode[dto.Listing](t, rec)
	require.Len(t, updated.Images, 1)
	assert.Contains(t, updated.Images[0], "https://cdn.example.com/listings/"+listing.ID+"/")
	assert.Contains(t, updated.Images[0], ".png")
}

type denyLimiter struct{}

func (denyLimiter) Allow(context.Context, string) (ratelimit.Decision, error) {
	return ratelimit.Decision{Allowed: false, Limit: 10, RetryAfter: 30 * time.Second}, nil
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string) (ratelimit.Decision, error) {
	return ratelimit.Decision{}, errors.New("redis down")
}

func TestRateLimit(t *testing.T) {
	a := newAPI(t, denyLimiter{})
	rec := a.do(http.MethodGet, "/api/listings", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))

	rec = a.do(http.MethodGet, "/livez", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	open := newAPI(t, brokenLimiter{})
	rec = open.do(http.MethodGet, "/api/listings", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		domainavailability.ErrNotAvailable: http.StatusBadRequest,
		domainbooking.ErrInvalidTransition: http.StatusBadRequest,
		authz.ErrUnauthenticated:           http.StatusUnauthorized,
		authsvc.ErrInvalidToken:            http.StatusUnauthorized,
		authz.ErrForbidden:                 http.StatusForbidden,
		bookingapp.ErrNotAuthorized:        http.StatusForbidden,
		listingapp.ErrNotOwner:             http.StatusForbidden,
		domainlistings.ErrNotFound:         http.StatusNotFound,
		domainbooking.ErrBookingNotFound:   http.StatusNotFound,
		middleware.ErrLockUnavailable:      http.StatusServiceUnavailable,
		errors.New("boom"):                 http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, statusFor(err), err.Error())
		assert.Equal(t, want, statusFor(errors.Join(errors.New("wrapped"), err)), err.Error())
	}
}
