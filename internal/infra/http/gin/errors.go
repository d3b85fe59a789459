package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"stayfinder/internal/app/authz"
	"stayfinder/internal/app/bus"
	bookingapp "stayfinder/internal/app/handlers/booking"
	listingapp "stayfinder/internal/app/handlers/listings"
	"stayfinder/internal/app/middleware"
	authsvc "stayfinder/internal/app/services/auth"
	domainavailability "stayfinder/internal/domain/availability"
	domainbooking "stayfinder/internal/domain/booking"
	domainlistings "stayfinder/internal/domain/listings"
	domainpricing "stayfinder/internal/domain/pricing"
	domainrange "stayfinder/internal/domain/shared/daterange"
	"stayfinder/internal/domain/shared/money"
	domainuser "stayfinder/internal/domain/user"
)

var errorStatuses = []struct {
	status int
	errs   []error
}{
	{http.StatusUnauthorized, []error{
		authz.ErrUnauthenticated,
		authsvc.ErrTokenRequired,
		authsvc.ErrInvalidToken,
		authsvc.ErrInvalidCredentials,
	}},
	{http.StatusForbidden, []error{
		authz.ErrForbidden,
		bookingapp.ErrNotAuthorized,
		listingapp.ErrNotOwner,
	}},
	{http.StatusNotFound, []error{
		domainlistings.ErrNotFound,
		domainbooking.ErrBookingNotFound,
		domainuser.ErrNotFound,
	}},
	{http.StatusServiceUnavailable, []error{
		middleware.ErrLockUnavailable,
		listingapp.ErrPhotoStorageMissing,
	}},
	{http.StatusBadRequest, []error{
		domainavailability.ErrNotAvailable,
		domainbooking.ErrInvalidTransition,
		domainbooking.ErrPaymentNotAllowed,
		domainbooking.ErrConcurrentUpdate,
		domainlistings.ErrConcurrentUpdate,
		domainuser.ErrEmailAlreadyUsed,

		domainrange.ErrInvalidRange,
		bookingapp.ErrGuestsExceedCapacity,
		domainbooking.ErrInvalidGuests,
		domainbooking.ErrUnknownStatus,
		domainlistings.ErrTitleLength,
		domainlistings.ErrDescriptionLength,
		domainlistings.ErrPropertyType,
		domainlistings.ErrRoomType,
		domainlistings.ErrLocationRequired,
		domainlistings.ErrGuestsLimit,
		domainlistings.ErrRooms,
		domainlistings.ErrNegativeRate,
		domainlistings.ErrInvalidState,
		domainlistings.ErrImageURL,
		listingapp.ErrPhotoType,
		listingapp.ErrPhotoTooLarge,
		domainpricing.ErrNegativeComponent,
		domainpricing.ErrNoNights,
		money.ErrInvalidCurrency,
		money.ErrCurrencyMismatch,
		authsvc.ErrPasswordTooShort,
		domainuser.ErrEmailRequired,
		domainuser.ErrNameRequired,
		domainuser.ErrInvalidRole,
	}},
}

// statusFor maps application errors to HTTP statuses. Conflicts are reported
// as 400 together with validation failures.
func statusFor(err error) int {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return http.StatusBadRequest
	}
	for _, group := range errorStatuses {
		for _, target := range group.errs {
			if errors.Is(err, target) {
				return group.status
			}
		}
	}
	if errors.Is(err, bus.ErrHandlerNotFound) {
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, logger *slog.Logger, err error) {
	status := statusFor(err)
	message := err.Error()
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		if logger != nil {
			logger.Error("request failed", "path", c.FullPath(), "error", err, "request_id", c.GetString("request_id"))
		}
		message = "internal server error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": message})
}
