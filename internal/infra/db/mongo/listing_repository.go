package mongo

import (
	"context"
	"errors"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainlistings "stayfinder/internal/domain/listings"
	domainrange "stayfinder/internal/domain/shared/daterange"
)

const listingsCollection = "agg_listing"

type ListingRepository struct {
	col *mongo.Collection
}

func NewListingRepository(db *mongo.Database) *ListingRepository {
	return &ListingRepository{col: db.Collection(listingsCollection)}
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	var doc listingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainlistings.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

// Save upserts guarded by version: a stale copy either matches nothing and
// collides on _id, or is rejected outright.
func (r *ListingRepository) Save(ctx context.Context, l *domainlistings.Listing) error {
	doc := newListingDocument(l)
	filter := bson.M{"_id": doc.ID, "version": l.Version}
	doc.Version = l.Version + 1
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domainlistings.ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return domainlistings.ErrConcurrentUpdate
	}
	l.Version = doc.Version
	return nil
}

func (r *ListingRepository) Delete(ctx context.Context, id domainlistings.ListingID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": string(id)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domainlistings.ErrNotFound
	}
	return nil
}

func (r *ListingRepository) Search(ctx context.Context, params domainlistings.SearchParams) (domainlistings.SearchResult, error) {
	params = params.Normalized()
	filter := buildSearchFilter(params)
	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return domainlistings.SearchResult{}, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(params.Offset())).
		SetLimit(int64(params.Limit))
	items, err := r.find(ctx, filter, opts)
	if err != nil {
		return domainlistings.SearchResult{}, err
	}
	return domainlistings.NewSearchResult(items, int(total), params), nil
}

func (r *ListingRepository) ListByHost(ctx context.Context, host domainlistings.HostID) ([]*domainlistings.Listing, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return r.find(ctx, bson.M{"host_id": string(host)}, opts)
}

func (r *ListingRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domainlistings.Listing, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make([]*domainlistings.Listing, 0)
	for cur.Next(ctx) {
		var doc listingDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

// buildSearchFilter mirrors SearchParams.Matches. A listing is excluded when
// any blocked window touches the requested stay, boundaries included.
func buildSearchFilter(p domainlistings.SearchParams) bson.M {
	filter := bson.M{}
	if p.Location != "" {
		pattern := primitiveRegex(p.Location)
		filter["$or"] = bson.A{
			bson.M{"location.address": pattern},
			bson.M{"location.city": pattern},
			bson.M{"location.state": pattern},
			bson.M{"location.country": pattern},
		}
	}
	price := bson.M{}
	if p.PriceMin > 0 {
		price["$gte"] = p.PriceMin
	}
	if p.PriceMax > 0 {
		price["$lte"] = p.PriceMax
	}
	if len(price) > 0 {
		filter["rates.base"] = price
	}
	if p.PropertyType != "" {
		filter["property_type"] = string(p.PropertyType)
	}
	if p.Guests > 0 {
		filter["max_guests"] = bson.M{"$gte": p.Guests}
	}
	if len(p.States) > 0 {
		states := make([]string, 0, len(p.States))
		for _, s := range p.States {
			states = append(states, string(s))
		}
		filter["state"] = bson.M{"$in": states}
	}
	if dr, ok := p.Range(); ok {
		filter["blocked"] = bson.M{"$not": bson.M{"$elemMatch": bson.M{
			"check_in":  bson.M{"$lte": dr.CheckOut.UnixMilli()},
			"check_out": bson.M{"$gte": dr.CheckIn.UnixMilli()},
		}}}
	}
	return filter
}

func primitiveRegex(text string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(text), "$options": "i"}
}

type listingDocument struct {
	ID           string           `bson:"_id"`
	HostID       string           `bson:"host_id"`
	Title        string           `bson:"title"`
	Description  string           `bson:"description"`
	PropertyType string           `bson:"property_type"`
	RoomType     string           `bson:"room_type"`
	Location     locationDocument `bson:"location"`
	Rates        ratesDocument    `bson:"rates"`
	Images       []string         `bson:"images"`
	Amenities    []string         `bson:"amenities"`
	MaxGuests    int              `bson:"max_guests"`
	Bedrooms     int              `bson:"bedrooms"`
	Beds         int              `bson:"beds"`
	Bathrooms    int              `bson:"bathrooms"`
	Blocked      []windowDocument `bson:"blocked"`
	State        string           `bson:"state"`
	CreatedAt    int64            `bson:"created_at"`
	UpdatedAt    int64            `bson:"updated_at"`
	Version      int64            `bson:"version"`
}

type locationDocument struct {
	Address string  `bson:"address"`
	City    string  `bson:"city"`
	State   string  `bson:"state"`
	Country string  `bson:"country"`
	Lat     float64 `bson:"lat"`
	Lng     float64 `bson:"lng"`
}

type ratesDocument struct {
	Currency    string `bson:"currency"`
	Base        int64  `bson:"base"`
	CleaningFee int64  `bson:"cleaning_fee"`
	ServiceFee  int64  `bson:"service_fee"`
}

type windowDocument struct {
	CheckIn   int64  `bson:"check_in"`
	CheckOut  int64  `bson:"check_out"`
	BookingID string `bson:"booking_id"`
}

func newListingDocument(l *domainlistings.Listing) listingDocument {
	blocked := make([]windowDocument, 0, len(l.Blocked))
	for _, w := range l.Blocked {
		blocked = append(blocked, windowDocument{
			CheckIn:   w.Range.CheckIn.UnixMilli(),
			CheckOut:  w.Range.CheckOut.UnixMilli(),
			BookingID: w.BookingID,
		})
	}
	return listingDocument{
		ID:           string(l.ID),
		HostID:       string(l.Host),
		Title:        l.Title,
		Description:  l.Description,
		PropertyType: string(l.PropertyType),
		RoomType:     string(l.RoomType),
		Location: locationDocument{
			Address: l.Location.Address,
			City:    l.Location.City,
			State:   l.Location.State,
			Country: l.Location.Country,
			Lat:     l.Location.Lat,
			Lng:     l.Location.Lng,
		},
		Rates: ratesDocument{
			Currency:    l.Rates.Currency,
			Base:        l.Rates.Base,
			CleaningFee: l.Rates.CleaningFee,
			ServiceFee:  l.Rates.ServiceFee,
		},
		Images:    append([]string{}, l.Images...),
		Amenities: append([]string{}, l.Amenities...),
		MaxGuests: l.MaxGuests,
		Bedrooms:  l.Bedrooms,
		Beds:      l.Beds,
		Bathrooms: l.Bathrooms,
		Blocked:   blocked,
		State:     string(l.State),
		CreatedAt: l.CreatedAt.UnixMilli(),
		UpdatedAt: l.UpdatedAt.UnixMilli(),
		Version:   l.Version,
	}
}

func (d listingDocument) toAggregate() *domainlistings.Listing {
	blocked := make([]domainlistings.BlockedWindow, 0, len(d.Blocked))
	for _, w := range d.Blocked {
		blocked = append(blocked, domainlistings.BlockedWindow{
			Range:     domainrange.DateRange{CheckIn: timestampToTime(w.CheckIn), CheckOut: timestampToTime(w.CheckOut)},
			BookingID: w.BookingID,
		})
	}
	return &domainlistings.Listing{
		ID:           domainlistings.ListingID(d.ID),
		Host:         domainlistings.HostID(d.HostID),
		Title:        d.Title,
		Description:  d.Description,
		PropertyType: domainlistings.PropertyType(d.PropertyType),
		RoomType:     domainlistings.RoomType(d.RoomType),
		Location: domainlistings.Location{
			Address: d.Location.Address,
			City:    d.Location.City,
			State:   d.Location.State,
			Country: d.Location.Country,
			Lat:     d.Location.Lat,
			Lng:     d.Location.Lng,
		},
		Rates: domainlistings.Rates{
			Currency:    d.Rates.Currency,
			Base:        d.Rates.Base,
			CleaningFee: d.Rates.CleaningFee,
			ServiceFee:  d.Rates.ServiceFee,
		},
		Images:    d.Images,
		Amenities: d.Amenities,
		MaxGuests: d.MaxGuests,
		Bedrooms:  d.Bedrooms,
		Beds:      d.Beds,
		Bathrooms: d.Bathrooms,
		Blocked:   blocked,
		State:     domainlistings.ListingState(d.State),
		CreatedAt: timestampToTime(d.CreatedAt),
		UpdatedAt: timestampToTime(d.UpdatedAt),
		Version:   d.Version,
	}
}

var _ domainlistings.ListingRepository = (*ListingRepository)(nil)

