package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"stayfinder/internal/app/bus"
	"stayfinder/internal/app/dto"
	bookingapp "stayfinder/internal/app/handlers/booking"
)

type BookingHandler struct {
	Commands bus.Dispatcher
	Queries  bus.Dispatcher
	Logger   *slog.Logger
}

type createBookingRequest struct {
	ListingID string `json:"listing_id" binding:"required"`
	CheckIn   string `json:"check_in" binding:"required"`
	CheckOut  string `json:"check_out" binding:"required"`
	Guests    int    `json:"guests"`
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

type payRequest struct {
	Reference string `json:"reference"`
}

func (h BookingHandler) Create(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	checkIn, err := requireDate(req.CheckIn)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	checkOut, err := requireDate(req.CheckOut)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	guests := req.Guests
	if guests == 0 {
		guests = 1
	}
	cmd := bookingapp.RequestBookingCommand{
		Actor:           actor,
		ListingID:       strings.TrimSpace(req.ListingID),
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		Guests:          guests,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	booking, err := bus.Send[bookingapp.RequestBookingCommand, *dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, booking)
}

func (h BookingHandler) MyBookings(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	items, err := bus.Send[bookingapp.ListGuestBookingsQuery, dto.BookingCollection](c.Request.Context(), h.Queries, bookingapp.ListGuestBookingsQuery{Actor: actor})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h BookingHandler) HostBookings(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	q := bookingapp.ListHostBookingsQuery{Actor: actor, Status: strings.ToLower(strings.TrimSpace(c.Query("status")))}
	items, err := bus.Send[bookingapp.ListHostBookingsQuery, dto.BookingCollection](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h BookingHandler) Get(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	booking, err := bus.Send[bookingapp.GetBookingQuery, *dto.Booking](c.Request.Context(), h.Queries, bookingapp.GetBookingQuery{Actor: actor, BookingID: c.Param("id")})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

func (h BookingHandler) UpdateStatus(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	cmd := bookingapp.UpdateBookingStatusCommand{
		Actor:     actor,
		BookingID: c.Param("id"),
		Status:    strings.ToLower(strings.TrimSpace(req.Status)),
	}
	booking, err := bus.Send[bookingapp.UpdateBookingStatusCommand, *dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

func (h BookingHandler) Delete(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	cmd := bookingapp.DeleteBookingCommand{Actor: actor, BookingID: c.Param("id")}
	result, err := bus.Send[bookingapp.DeleteBookingCommand, *bookingapp.DeleteBookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Pay records a simulated payment; the body is optional.
func (h BookingHandler) Pay(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req payRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}
	cmd := bookingapp.PayBookingCommand{Actor: actor, BookingID: c.Param("id"), Reference: req.Reference}
	booking, err := bus.Send[bookingapp.PayBookingCommand, *dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}
