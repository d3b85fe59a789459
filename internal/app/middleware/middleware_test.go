package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayfinder/internal/app/authz"
	"stayfinder/internal/app/bus"
	"stayfinder/internal/app/uow"
	domainbooking "stayfinder/internal/domain/booking"
	domainlistings "stayfinder/internal/domain/listings"
)

type reserve struct {
	Listing string `validate:"required"`
	Guests  int    `validate:"gte=1"`
	Token   string
}

func (c reserve) Key() string            { return "test.reserve" }
func (c reserve) IdempotencyKey() string { return c.Token }
func (c reserve) ResultPrototype() any   { return &receipt{} }
func (c reserve) LockKey() string        { return "listing:" + c.Listing }

type receipt struct {
	ID string `json:"id"`
}

type fakeUnit struct {
	committed  bool
	rolledBack bool
}

func (u *fakeUnit) Listings() domainlistings.ListingRepository { return nil }
func (u *fakeUnit) Bookings() domainbooking.Repository         { return nil }
func (u *fakeUnit) Commit(context.Context) error {
	u.committed = true
	return nil
}
func (u *fakeUnit) Rollback(context.Context) error {
	if !u.committed {
		u.rolledBack = true
	}
	return nil
}

type fakeFactory struct {
	units []*fakeUnit
	opts  []uow.TxOptions
}

func (f *fakeFactory) Begin(_ context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	unit := &fakeUnit{}
	f.units = append(f.units, unit)
	f.opts = append(f.opts, opts)
	return unit, nil
}

type mapStore struct {
	mu    sync.Mutex
	items map[string]IdempotencyRecord
}

func (s *mapStore) Get(_ context.Context, key string) (IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.items[key]
	return rec, ok, nil
}

func (s *mapStore) Save(_ context.Context, rec IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[rec.Key] = rec
	return nil
}

func TestTransactionCommitsOnSuccess(t *testing.T) {
	factory := &fakeFactory{}
	handler := bus.DispatchFunc(func(ctx context.Context, msg bus.Message) (any, error) {
		_, err := uow.Current(ctx)
		return "ok", err
	})

	res, err := Transaction(factory)(handler).Dispatch(context.Background(), reserve{})
	require.NoError(t, err)
	assert.Equal(t, "ok", res)
	require.Len(t, factory.units, 1)
	assert.True(t, factory.units[0].committed)
	assert.False(t, factory.units[0].rolledBack)
}

func TestTransactionRollsBackOnError(t *testing.T) {
	factory := &fakeFactory{}
	boom := errors.New("boom")
	handler := bus.DispatchFunc(func(ctx context.Context, msg bus.Message) (any, error) {
		return nil, boom
	})

	_, err := Transaction(factory)(handler).Dispatch(context.Background(), reserve{})
	assert.ErrorIs(t, err, boom)
	assert.True(t, factory.units[0].rolledBack)
	assert.False(t, factory.units[0].committed)
}

func TestReadOnlyBindsReadOnlyUnit(t *testing.T) {
	factory := &fakeFactory{}
	handler := bus.DispatchFunc(func(ctx context.Context, msg bus.Message) (any, error) {
		_, err := uow.Current(ctx)
		return nil, err
	})

	_, err := ReadOnly(factory)(handler).Dispatch(context.Background(), reserve{})
	require.NoError(t, err)
	assert.True(t, factory.opts[0].ReadOnly)
	assert.True(t, factory.units[0].rolledBack)
}

func TestIdempotencyReplaysResult(t *testing.T) {
	store := &mapStore{items: map[string]IdempotencyRecord{}}
	calls := 0
	handler := bus.DispatchFunc(func(ctx context.Context, msg bus.Message) (any, error) {
		calls++
		return &receipt{ID: "r-1"}, nil
	})
	dispatcher := Idempotency(store, nil)(handler)

	first, err := dispatcher.Dispatch(context.Background(), reserve{Token: "k1"})
	require.NoError(t, err)
	second, err := dispatcher.Dispatch(context.Background(), reserve{Token: "k1"})
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
	_, ok := store.items["test.reserve:k1"]
	assert.True(t, ok)

	_, err = dispatcher.Dispatch(context.Background(), reserve{})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

type ownedReserve struct {
	reserve
	Actor authz.Actor
}

func (c ownedReserve) Caller() authz.Actor { return c.Actor }

func TestIdempotencyKeysAreScopedToCaller(t *testing.T) {
	store := &mapStore{items: map[string]IdempotencyRecord{}}
	calls := 0
	handler := bus.DispatchFunc(func(ctx context.Context, msg bus.Message) (any, error) {
		calls++
		return &receipt{ID: msg.(ownedReserve).Actor.ID}, nil
	})
	dispatcher := Idempotency(store, nil)(handler)

	first, err := dispatcher.Dispatch(context.Background(), ownedReserve{reserve: reserve{Token: "k"}, Actor: authz.Actor{ID: "u-1"}})
	require.NoError(t, err)
	second, err := dispatcher.Dispatch(context.Background(), ownedReserve{reserve: reserve{Token: "k"}, Actor: authz.Actor{ID: "u-2"}})
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
	assert.Equal(t, &receipt{ID: "u-1"}, first)
	assert.Equal(t, &receipt{ID: "u-2"}, second)
	assert.Contains(t, store.items, "test.reserve:u-1:k")
	assert.Contains(t, store.items, "test.reserve:u-2:k")
}

func TestIdempotencyDoesNotStoreFailures(t *testing.T) {
	store := &mapStore{items: map[string]IdempotencyRecord{}}
	calls := 0
	handler := bus.DispatchFunc(func(ctx context.Context, msg bus.Message) (any, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("transient")
		}
		return &receipt{ID: "r-2"}, nil
	})
	dispatcher := Idempotency(store, nil)(handler)

	_, err := dispatcher.Dispatch(context.Background(), reserve{Token: "k2"})
	require.Error(t, err)
	res, err := dispatcher.Dispatch(context.Background(), reserve{Token: "k2"})
	require.NoError(t, err)
	assert.Equal(t, &receipt{ID: "r-2"}, res)
}

func TestValidationUsesStructTags(t *testing.T) {
	handler := bus.DispatchFunc(func(ctx context.Context, msg bus.Message) (any, error) { return "ok", nil })
	dispatcher := Validation(NewStructValidator())(handler)

	_, err := dispatcher.Dispatch(context.Background(), reserve{Guests: 0})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs, 2)

	res, err := dispatcher.Dispatch(context.Background(), reserve{Listing: "l-1", Guests: 2})
	require.NoError(t, err)
	assert.Equal(t, "ok", res)
}

type countingLocker struct {
	mu       sync.Mutex
	acquired []string
	released int
}

func (l *countingLocker) Acquire(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	l.acquired = append(l.acquired, key)
	l.mu.Unlock()
	return func() {
		l.mu.Lock()
		l.released++
		l.mu.Unlock()
	}, nil
}

func TestSerializeAcquiresLockKey(t *testing.T) {
	locker := &countingLocker{}
	handler := bus.DispatchFunc(func(ctx context.Context, msg bus.Message) (any, error) {
		assert.Equal(t, 0, locker.released)
		return nil, nil
	})

	_, err := Serialize(locker)(handler).Dispatch(context.Background(), reserve{Listing: "l-9"})
	require.NoError(t, err)
	assert.Equal(t, []string{"listing:l-9"}, locker.acquired)
	assert.Equal(t, 1, locker.released)
}

func TestHoldKeepsExtraLockUntilCommandEnds(t *testing.T) {
	locker := &countingLocker{}
	handler := bus.DispatchFunc(func(ctx context.Context, msg bus.Message) (any, error) {
		require.NoError(t, Hold(ctx, "listing:l-2"))
		require.NoError(t, Hold(ctx, "listing:l-9"))
		assert.Equal(t, 0, locker.released)
		return nil, nil
	})

	_, err := Serialize(locker)(handler).Dispatch(context.Background(), reserve{Listing: "l-9"})
	require.NoError(t, err)
	assert.Equal(t, []string{"listing:l-9", "listing:l-2"}, locker.acquired)
	assert.Equal(t, 2, locker.released)

	assert.NoError(t, Hold(context.Background(), "listing:l-3"))
	assert.Len(t, locker.acquired, 2)
}

type denyAll struct{}

func (denyAll) Authorize(context.Context, any) error { return errors.New("denied") }

func TestAuthorizationStopsDispatch(t *testing.T) {
	called := false
	handler := bus.DispatchFunc(func(ctx context.Context, msg bus.Message) (any, error) {
		called = true
		return nil, nil
	})
	_, err := Authorization(denyAll{})(handler).Dispatch(context.Background(), reserve{})
	assert.EqualError(t, err, "denied")
	assert.False(t, called)
}
