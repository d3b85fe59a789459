package listings

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"stayfinder/internal/domain/shared/daterange"
	"stayfinder/internal/domain/shared/events"
	"stayfinder/internal/domain/shared/money"
)

var (
	ErrNotFound          = errors.New("listings: not found")
	ErrConcurrentUpdate  = errors.New("listings: concurrent update")
	ErrTitleLength       = errors.New("listings: title must be between 5 and 100 characters")
	ErrDescriptionLength = errors.New("listings: description must be between 20 and 2000 characters")
	ErrPropertyType      = errors.New("listings: unsupported property type")
	ErrRoomType          = errors.New("listings: unsupported room type")
	ErrLocationRequired  = errors.New("listings: address, city, state and country are required")
	ErrGuestsLimit       = errors.New("listings: max guests must be at least 1")
	ErrRooms             = errors.New("listings: bedrooms must be >= 0, beds and bathrooms >= 1")
	ErrNegativeRate      = errors.New("listings: prices must be non-negative")
	ErrInvalidState      = errors.New("listings: invalid state")
	ErrImageURL          = errors.New("listings: image url must start with http:// or https://")
)

type ListingID string
type HostID string

type PropertyType string

const (
	PropertyHouse     PropertyType = "house"
	PropertyApartment PropertyType = "apartment"
	PropertyCondo     PropertyType = "condo"
	PropertyVilla     PropertyType = "villa"
	PropertyCabin     PropertyType = "cabin"
	PropertyStudio    PropertyType = "studio"
)

type RoomType string

const (
	RoomEntire  RoomType = "entire"
	RoomPrivate RoomType = "private"
	RoomShared  RoomType = "shared"
)

type ListingState string

const (
	ListingActive    ListingState = "active"
	ListingInactive  ListingState = "inactive"
	ListingSuspended ListingState = "suspended"
)

type Location struct {
	Address string
	City    string
	State   string
	Country string
	Lat     float64
	Lng     float64
}

func (l Location) Valid() bool {
	return strings.TrimSpace(l.Address) != "" &&
		strings.TrimSpace(l.City) != "" &&
		strings.TrimSpace(l.State) != "" &&
		strings.TrimSpace(l.Country) != ""
}

// Rates holds per-night and per-stay charges in minor units.
type Rates struct {
	Currency    string
	Base        int64
	CleaningFee int64
	ServiceFee  int64
}

func (r Rates) Nightly() money.Money {
	return money.Money{Amount: r.Base, Currency: r.Currency}
}

func (r Rates) Cleaning() money.Money {
	return money.Money{Amount: r.CleaningFee, Currency: r.Currency}
}

func (r Rates) Service() money.Money {
	return money.Money{Amount: r.ServiceFee, Currency: r.Currency}
}

func (r Rates) validate() error {
	if r.Base < 0 || r.CleaningFee < 0 || r.ServiceFee < 0 {
		return ErrNegativeRate
	}
	if _, err := money.New(0, r.Currency); err != nil {
		return err
	}
	return nil
}

// BlockedWindow marks dates held by a reservation.
type BlockedWindow struct {
	Range     daterange.DateRange
	BookingID string
}

type Listing struct {
	ID           ListingID
	Host         HostID
	Title        string
	Description  string
	PropertyType PropertyType
	RoomType     RoomType
	Location     Location
	Rates        Rates
	Images       []string
	Amenities    []string
	MaxGuests    int
	Bedrooms     int
	Beds         int
	Bathrooms    int
	Blocked      []BlockedWindow
	State        ListingState
	Version      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
	events.EventRecorder
}

type ListingRepository interface {
	ByID(ctx context.Context, id ListingID) (*Listing, error)
	Save(ctx context.Context, listing *Listing) error
	Delete(ctx context.Context, id ListingID) error
	Search(ctx context.Context, params SearchParams) (SearchResult, error)
	ListByHost(ctx context.Context, host HostID) ([]*Listing, error)
}

// Details are the host-editable attributes shared by create and update.
type Details struct {
	Title        string
	Description  string
	PropertyType PropertyType
	RoomType     RoomType
	Location     Location
	Rates        Rates
	Images       []string
	Amenities    []string
	MaxGuests    int
	Bedrooms     int
	Beds         int
	Bathrooms    int
}

type CreateListingParams struct {
	ID   ListingID
	Host HostID
	Details
	Now time.Time
}

func NewListing(params CreateListingParams) (*Listing, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, errors.New("listings: id is required")
	}
	if strings.TrimSpace(string(params.Host)) == "" {
		return nil, errors.New("listings: host is required")
	}
	details, err := normalizeDetails(params.Details)
	if err != nil {
		return nil, err
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	listing := &Listing{
		ID:        params.ID,
		Host:      params.Host,
		State:     ListingActive,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
	listing.apply(details)
	listing.Record(ListingCreatedEvent{ListingID: listing.ID, HostID: listing.Host, At: listing.CreatedAt})
	return listing, nil
}

func (l *Listing) Update(details Details, now time.Time) error {
	normalized, err := normalizeDetails(details)
	if err != nil {
		return err
	}
	l.apply(normalized)
	l.touch(now)
	l.Record(ListingUpdatedEvent{ListingID: l.ID, At: l.UpdatedAt})
	return nil
}

func (l *Listing) ChangeState(state ListingState, now time.Time) error {
	switch state {
	case ListingActive, ListingInactive, ListingSuspended:
	default:
		return ErrInvalidState
	}
	if l.State == state {
		return nil
	}
	l.State = state
	l.touch(now)
	l.Record(ListingStateChangedEvent{ListingID: l.ID, State: state, At: l.UpdatedAt})
	return nil
}

// AddImage appends an uploaded photo url.
func (l *Listing) AddImage(url string, now time.Time) error {
	url = strings.TrimSpace(url)
	if !validImageURL(url) {
		return ErrImageURL
	}
	l.Images = append(l.Images, url)
	l.touch(now)
	l.Record(ListingUpdatedEvent{ListingID: l.ID, At: l.UpdatedAt})
	return nil
}

func (l *Listing) OwnedBy(host HostID) bool {
	return l.Host == host
}

func (l *Listing) BlockWindow(dr daterange.DateRange, bookingID string, now time.Time) {
	l.Blocked = append(l.Blocked, BlockedWindow{Range: dr, BookingID: bookingID})
	l.touch(now)
	l.Record(WindowBlockedEvent{ListingID: l.ID, BookingID: bookingID, Range: dr, At: l.UpdatedAt})
}

// ReleaseWindow drops the first window whose dates equal dr exactly.
func (l *Listing) ReleaseWindow(dr daterange.DateRange, now time.Time) bool {
	for i, window := range l.Blocked {
		if !window.Range.Equal(dr) {
			continue
		}
		l.Blocked = append(l.Blocked[:i:i], l.Blocked[i+1:]...)
		l.touch(now)
		l.Record(WindowReleasedEvent{ListingID: l.ID, BookingID: window.BookingID, Range: dr, At: l.UpdatedAt})
		return true
	}
	return false
}

func (l *Listing) HasBlockedOverlap(dr daterange.DateRange) bool {
	for _, window := range l.Blocked {
		if window.Range.OverlapsInclusive(dr) {
			return true
		}
	}
	return false
}

func (l *Listing) touch(now time.Time) {
	if now.IsZero() {
		now = time.Now()
	}
	l.UpdatedAt = now.UTC()
}

func (l *Listing) apply(details Details) {
	l.Title = details.Title
	l.Description = details.Description
	l.PropertyType = details.PropertyType
	l.RoomType = details.RoomType
	l.Location = details.Location
	l.Rates = details.Rates
	l.Images = details.Images
	l.Amenities = details.Amenities
	l.MaxGuests = details.MaxGuests
	l.Bedrooms = details.Bedrooms
	l.Beds = details.Beds
	l.Bathrooms = details.Bathrooms
}

func normalizeDetails(d Details) (Details, error) {
	d.Title = strings.TrimSpace(d.Title)
	if n := utf8.RuneCountInString(d.Title); n < 5 || n > 100 {
		return Details{}, ErrTitleLength
	}
	d.Description = strings.TrimSpace(d.Description)
	if n := utf8.RuneCountInString(d.Description); n < 20 || n > 2000 {
		return Details{}, ErrDescriptionLength
	}
	d.PropertyType = PropertyType(strings.ToLower(strings.TrimSpace(string(d.PropertyType))))
	if !d.PropertyType.Valid() {
		return Details{}, ErrPropertyType
	}
	d.RoomType = RoomType(strings.ToLower(strings.TrimSpace(string(d.RoomType))))
	if !d.RoomType.Valid() {
		return Details{}, ErrRoomType
	}
	d.Location.Address = strings.TrimSpace(d.Location.Address)
	d.Location.City = strings.TrimSpace(d.Location.City)
	d.Location.State = strings.TrimSpace(d.Location.State)
	d.Location.Country = strings.TrimSpace(d.Location.Country)
	if !d.Location.Valid() {
		return Details{}, ErrLocationRequired
	}
	if strings.TrimSpace(d.Rates.Currency) == "" {
		d.Rates.Currency = money.DefaultCurrency
	}
	d.Rates.Currency = strings.ToUpper(strings.TrimSpace(d.Rates.Currency))
	if err := d.Rates.validate(); err != nil {
		return Details{}, err
	}
	if d.MaxGuests < 1 {
		return Details{}, ErrGuestsLimit
	}
	if d.Bedrooms < 0 || d.Beds < 1 || d.Bathrooms < 1 {
		return Details{}, ErrRooms
	}
	images := make([]string, 0, len(d.Images))
	for _, image := range d.Images {
		image = strings.TrimSpace(image)
		if !validImageURL(image) {
			return Details{}, ErrImageURL
		}
		images = append(images, image)
	}
	d.Images = images
	d.Amenities = normalizeTokens(d.Amenities)
	return d, nil
}

func (p PropertyType) Valid() bool {
	switch p {
	case PropertyHouse, PropertyApartment, PropertyCondo, PropertyVilla, PropertyCabin, PropertyStudio:
		return true
	}
	return false
}

func (r RoomType) Valid() bool {
	switch r {
	case RoomEntire, RoomPrivate, RoomShared:
		return true
	}
	return false
}

func validImageURL(url string) bool {
	lower := strings.ToLower(url)
	for _, prefix := range []string{"http://", "https://"} {
		if strings.HasPrefix(lower, prefix) && len(lower) > len(prefix) {
			return true
		}
	}
	return false
}
