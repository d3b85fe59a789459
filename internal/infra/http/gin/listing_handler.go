package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"stayfinder/internal/app/bus"
	"stayfinder/internal/app/dto"
	listingapp "stayfinder/internal/app/handlers/listings"
	domainlistings "stayfinder/internal/domain/listings"
)

type ListingHandler struct {
	Commands bus.Dispatcher
	Queries  bus.Dispatcher
	Logger   *slog.Logger
}

type listingRequest struct {
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	PropertyType string              `json:"property_type"`
	RoomType     string              `json:"room_type"`
	Location     dto.ListingLocation `json:"location"`
	Price        dto.ListingPrice    `json:"price"`
	Images       []string            `json:"images"`
	Amenities    []string            `json:"amenities"`
	MaxGuests    int                 `json:"max_guests"`
	Bedrooms     int                 `json:"bedrooms"`
	Beds         int                 `json:"beds"`
	Bathrooms    int                 `json:"bathrooms"`
}

func (r listingRequest) details() domainlistings.Details {
	return domainlistings.Details{
		Title:        r.Title,
		Description:  r.Description,
		PropertyType: domainlistings.PropertyType(r.PropertyType),
		RoomType:     domainlistings.RoomType(r.RoomType),
		Location: domainlistings.Location{
			Address: r.Location.Address,
			City:    r.Location.City,
			State:   r.Location.State,
			Country: r.Location.Country,
			Lat:     r.Location.Lat,
			Lng:     r.Location.Lng,
		},
		Rates: domainlistings.Rates{
			Currency:    r.Price.Currency,
			Base:        r.Price.Base,
			CleaningFee: r.Price.CleaningFee,
			ServiceFee:  r.Price.ServiceFee,
		},
		Images:    r.Images,
		Amenities: r.Amenities,
		MaxGuests: r.MaxGuests,
		Bedrooms:  r.Bedrooms,
		Beds:      r.Beds,
		Bathrooms: r.Bathrooms,
	}
}

// Search serves GET /listings. Invalid or inverted dates drop the date filter.
func (h ListingHandler) Search(c *gin.Context) {
	params := domainlistings.SearchParams{
		Location:     c.Query("location"),
		Guests:       parseInt(c.Query("guests")),
		PriceMin:     parseInt64(c.Query("min_price")),
		PriceMax:     parseInt64(c.Query("max_price")),
		PropertyType: domainlistings.PropertyType(c.Query("property_type")),
		Page:         parseInt(c.Query("page")),
		Limit:        parseInt(c.Query("limit")),
	}
	if checkIn, ok := parseFlexibleTime(c.Query("check_in")); ok {
		params.CheckIn = checkIn
	}
	if checkOut, ok := parseFlexibleTime(c.Query("check_out")); ok {
		params.CheckOut = checkOut
	}
	for _, state := range splitCSV(c.Query("status")) {
		params.States = append(params.States, domainlistings.ListingState(strings.ToLower(state)))
	}
	page, err := bus.Send[listingapp.SearchListingsQuery, dto.ListingPage](c.Request.Context(), h.Queries, listingapp.SearchListingsQuery{Params: params})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h ListingHandler) Get(c *gin.Context) {
	listing, err := bus.Send[listingapp.GetListingQuery, *dto.Listing](c.Request.Context(), h.Queries, listingapp.GetListingQuery{ListingID: c.Param("id")})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h ListingHandler) HostListings(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	items, err := bus.Send[listingapp.ListHostListingsQuery, dto.ListingCollection](c.Request.Context(), h.Queries, listingapp.ListHostListingsQuery{Actor: actor})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h ListingHandler) Create(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req listingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	cmd := listingapp.CreateListingCommand{Actor: actor, Details: req.details(), IdempotencyKeyV: c.GetHeader("Idempotency-Key")}
	listing, err := bus.Send[listingapp.CreateListingCommand, *dto.Listing](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, listing)
}

func (h ListingHandler) Update(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req listingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	cmd := listingapp.UpdateListingCommand{Actor: actor, ListingID: c.Param("id"), Details: req.details()}
	listing, err := bus.Send[listingapp.UpdateListingCommand, *dto.Listing](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h ListingHandler) Delete(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	cmd := listingapp.DeleteListingCommand{Actor: actor, ListingID: c.Param("id")}
	result, err := bus.Send[listingapp.DeleteListingCommand, *listingapp.DeleteListingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// UploadPhoto accepts a multipart "photo" field. The content type is sniffed
// from the bytes rather than trusted from the client.
func (h ListingHandler) UploadPhoto(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, listingapp.MaxPhotoBytes+1<<20)
	fileHeader, err := c.FormFile("photo")
	if err != nil {
		badRequest(c, "photo file is required")
		return
	}
	if fileHeader.Size > listingapp.MaxPhotoBytes {
		respondError(c, h.Logger, listingapp.ErrPhotoTooLarge)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		badRequest(c, "cannot read photo")
		return
	}
	defer file.Close()

	head := make([]byte, 512)
	n, _ := file.Read(head)
	if _, err := file.Seek(0, 0); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	cmd := listingapp.UploadListingPhotoCommand{
		Actor:       actor,
		ListingID:   c.Param("id"),
		ContentType: http.DetectContentType(head[:n]),
		Size:        fileHeader.Size,
		Reader:      file,
	}
	listing, err := bus.Send[listingapp.UploadListingPhotoCommand, *dto.Listing](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, listing)
}
