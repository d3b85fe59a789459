package mongo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"stayfinder/internal/app/middleware"
)

const locksCollection = "app_locks"

const (
	defaultLockLease = 30 * time.Second
	defaultLockPoll  = 25 * time.Millisecond
	defaultLockWait  = 5 * time.Second
)

// Locker is a lease-based mutex shared by every instance pointing at the same
// database. Expired leases can be taken over, so Lease must outlive the
// longest command.
type Locker struct {
	col   *mongo.Collection
	Lease time.Duration
	Poll  time.Duration
	Wait  time.Duration
	Now   func() time.Time
}

func NewLocker(db *mongo.Database) *Locker {
	return &Locker{col: db.Collection(locksCollection)}
}

func (l *Locker) Acquire(ctx context.Context, key string) (func(), error) {
	owner := uuid.NewString()
	wait := l.Wait
	if wait <= 0 {
		wait = defaultLockWait
	}
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	poll := l.Poll
	if poll <= 0 {
		poll = defaultLockPoll
	}
	for {
		ok, err := l.tryAcquire(ctx, key, owner)
		if err != nil {
			return nil, err
		}
		if ok {
			var once sync.Once
			return func() {
				once.Do(func() {
					releaseCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
					defer done()
					_, _ = l.col.DeleteOne(releaseCtx, bson.M{"_id": key, "owner": owner})
				})
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", middleware.ErrLockUnavailable, ctx.Err())
		case <-time.After(poll):
		}
	}
}

func (l *Locker) tryAcquire(ctx context.Context, key, owner string) (bool, error) {
	now := l.now()
	doc := lockDocument{ID: key, Owner: owner, ExpiresAt: now.Add(l.lease())}
	_, err := l.col.InsertOne(ctx, doc)
	if err == nil {
		return true, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return false, nil
		}
		return false, err
	}
	res, err := l.col.UpdateOne(ctx,
		bson.M{"_id": key, "expires_at": bson.M{"$lte": now}},
		bson.M{"$set": bson.M{"owner": owner, "expires_at": doc.ExpiresAt}},
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return false, nil
		}
		return false, err
	}
	return res.MatchedCount == 1, nil
}

func (l *Locker) lease() time.Duration {
	if l.Lease > 0 {
		return l.Lease
	}
	return defaultLockLease
}

func (l *Locker) now() time.Time {
	if l.Now != nil {
		return l.Now().UTC()
	}
	return time.Now().UTC()
}

type lockDocument struct {
	ID        string    `bson:"_id"`
	Owner     string    `bson:"owner"`
	ExpiresAt time.Time `bson:"expires_at"`
}

var _ middleware.Locker = (*Locker)(nil)
