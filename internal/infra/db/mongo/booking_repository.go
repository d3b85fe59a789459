package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "stayfinder/internal/domain/booking"
	domainlistings "stayfinder/internal/domain/listings"
	"stayfinder/internal/domain/pricing"
	"stayfinder/internal/domain/shared/daterange"
	"stayfinder/internal/domain/shared/money"
)

const bookingsCollection = "agg_booking"

type BookingRepository struct {
	col *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	return &BookingRepository{col: db.Collection(bookingsCollection)}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbooking.ErrBookingNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	filter := bson.M{"_id": doc.ID, "version": b.Version}
	doc.Version = b.Version + 1
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domainbooking.ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return domainbooking.ErrConcurrentUpdate
	}
	b.Version = doc.Version
	return nil
}

func (r *BookingRepository) Delete(ctx context.Context, id domainbooking.BookingID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": string(id)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domainbooking.ErrBookingNotFound
	}
	return nil
}

func (r *BookingRepository) ListByGuest(ctx context.Context, guestID string) ([]*domainbooking.Booking, error) {
	return r.find(ctx, bson.M{"guest_id": guestID}, newestFirst())
}

func (r *BookingRepository) ListByHost(ctx context.Context, hostID string) ([]*domainbooking.Booking, error) {
	return r.find(ctx, bson.M{"host_id": hostID}, newestFirst())
}

// Overlapping returns bookings whose range touches dr, boundaries included.
func (r *BookingRepository) Overlapping(ctx context.Context, listingID domainlistings.ListingID, dr daterange.DateRange, statuses []domainbooking.Status) ([]*domainbooking.Booking, error) {
	filter := overlapFilter(listingID, dr, statuses)
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "range.check_in", Value: 1}}))
}

func (r *BookingRepository) DueForCompletion(ctx context.Context, before time.Time, limit int) ([]*domainbooking.Booking, error) {
	filter := bson.M{
		"status":          string(domainbooking.StatusConfirmed),
		"range.check_out": bson.M{"$lt": before.UnixMilli()},
	}
	opts := options.Find().SetSort(bson.D{{Key: "range.check_out", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return r.find(ctx, filter, opts)
}

func overlapFilter(listingID domainlistings.ListingID, dr daterange.DateRange, statuses []domainbooking.Status) bson.M {
	filter := bson.M{
		"listing_id":      string(listingID),
		"range.check_in":  bson.M{"$lte": dr.CheckOut.UnixMilli()},
		"range.check_out": bson.M{"$gte": dr.CheckIn.UnixMilli()},
	}
	if len(statuses) > 0 {
		values := make([]string, 0, len(statuses))
		for _, s := range statuses {
			values = append(values, string(s))
		}
		filter["status"] = bson.M{"$in": values}
	}
	return filter
}

func newestFirst() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
}

func (r *BookingRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domainbooking.Booking, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make([]*domainbooking.Booking, 0)
	for cur.Next(ctx) {
		var doc bookingDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

type bookingDocument struct {
	ID            string        `bson:"_id"`
	ListingID     string        `bson:"listing_id"`
	GuestID       string        `bson:"guest_id"`
	HostID        string        `bson:"host_id"`
	Range         rangeDocument `bson:"range"`
	Guests        int           `bson:"guests"`
	Price         priceDocument `bson:"price"`
	Status        string        `bson:"status"`
	PaymentStatus string        `bson:"payment_status"`
	PaymentRef    string        `bson:"payment_ref,omitempty"`
	CreatedAt     int64         `bson:"created_at"`
	UpdatedAt     int64         `bson:"updated_at"`
	Version       int64         `bson:"version"`
}

type rangeDocument struct {
	CheckIn  int64 `bson:"check_in"`
	CheckOut int64 `bson:"check_out"`
}

type priceDocument struct {
	Currency string        `bson:"currency"`
	Nights   int           `bson:"nights"`
	Nightly  int64         `bson:"nightly"`
	Fees     []feeDocument `bson:"fees"`
	Total    int64         `bson:"total"`
}

type feeDocument struct {
	Name   string `bson:"name"`
	Amount int64  `bson:"amount"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	fees := make([]feeDocument, 0, len(b.Price.Fees))
	for _, fee := range b.Price.Fees {
		fees = append(fees, feeDocument{Name: fee.Name, Amount: fee.Amount.Amount})
	}
	return bookingDocument{
		ID:        string(b.ID),
		ListingID: string(b.ListingID),
		GuestID:   b.GuestID,
		HostID:    b.HostID,
		Range: rangeDocument{
			CheckIn:  b.Range.CheckIn.UnixMilli(),
			CheckOut: b.Range.CheckOut.UnixMilli(),
		},
		Guests: b.Guests,
		Price: priceDocument{
			Currency: b.Price.Nightly.Currency,
			Nights:   b.Price.Nights,
			Nightly:  b.Price.Nightly.Amount,
			Fees:     fees,
			Total:    b.Price.Total.Amount,
		},
		Status:        string(b.Status),
		PaymentStatus: string(b.PaymentStatus),
		PaymentRef:    b.PaymentRef,
		CreatedAt:     b.CreatedAt.UnixMilli(),
		UpdatedAt:     b.UpdatedAt.UnixMilli(),
		Version:       b.Version,
	}
}

func (d bookingDocument) toAggregate() *domainbooking.Booking {
	currency := d.Price.Currency
	fees := make([]pricing.Fee, 0, len(d.Price.Fees))
	for _, fee := range d.Price.Fees {
		fees = append(fees, pricing.Fee{Name: fee.Name, Amount: money.Money{Amount: fee.Amount, Currency: currency}})
	}
	return &domainbooking.Booking{
		ID:        domainbooking.BookingID(d.ID),
		ListingID: domainlistings.ListingID(d.ListingID),
		GuestID:   d.GuestID,
		HostID:    d.HostID,
		Range: daterange.DateRange{
			CheckIn:  timestampToTime(d.Range.CheckIn),
			CheckOut: timestampToTime(d.Range.CheckOut),
		},
		Guests: d.Guests,
		Price: pricing.PriceBreakdown{
			Nights:  d.Price.Nights,
			Nightly: money.Money{Amount: d.Price.Nightly, Currency: currency},
			Fees:    fees,
			Total:   money.Money{Amount: d.Price.Total, Currency: currency},
		},
		Status:        domainbooking.Status(d.Status),
		PaymentStatus: domainbooking.PaymentStatus(d.PaymentStatus),
		PaymentRef:    d.PaymentRef,
		CreatedAt:     timestampToTime(d.CreatedAt),
		UpdatedAt:     timestampToTime(d.UpdatedAt),
		Version:       d.Version,
	}
}

var _ domainbooking.Repository = (*BookingRepository)(nil)
