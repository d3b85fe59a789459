package listings

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"stayfinder/internal/app/authz"
	"stayfinder/internal/app/dto"
	domainuser "stayfinder/internal/domain/user"
)

const (
	uploadListingPhotoKey = "listings.photos.upload"
	MaxPhotoBytes         = 10 << 20
)

var photoExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// PhotoStorage keeps uploaded binaries and returns their public URL.
type PhotoStorage interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (publicURL string, err error)
}

type UploadListingPhotoCommand struct {
	Actor       authz.Actor
	ListingID   string `validate:"required"`
	ContentType string `validate:"required"`
	Size        int64  `validate:"gt=0"`
	Reader      io.Reader
}

func (c UploadListingPhotoCommand) Key() string { return uploadListingPhotoKey }

func (c UploadListingPhotoCommand) Caller() authz.Actor { return c.Actor }

func (c UploadListingPhotoCommand) AllowedRoles() []domainuser.Role { return hostRoles }

func (c UploadListingPhotoCommand) LockKey() string { return "listing:" + c.ListingID }

type UploadListingPhotoHandler struct {
	Storage PhotoStorage
	Logger  *slog.Logger
	Now     func() time.Time
}

func (h *UploadListingPhotoHandler) Handle(ctx context.Context, cmd UploadListingPhotoCommand) (*dto.Listing, error) {
	if h.Storage == nil {
		return nil, ErrPhotoStorageMissing
	}
	contentType := strings.ToLower(strings.TrimSpace(cmd.ContentType))
	ext, ok := photoExtensions[contentType]
	if !ok || cmd.Reader == nil {
		return nil, ErrPhotoType
	}
	if cmd.Size > MaxPhotoBytes {
		return nil, ErrPhotoTooLarge
	}
	unit, listing, err := loadOwned(ctx, cmd.Actor, cmd.ListingID)
	if err != nil {
		return nil, err
	}

	objectKey := path.Join("listings", string(listing.ID), uuid.NewString()+ext)
	publicURL, err := h.Storage.Upload(ctx, objectKey, cmd.Reader, cmd.Size, contentType)
	if err != nil {
		return nil, fmt.Errorf("listings: upload photo: %w", err)
	}

	now := time.Now()
	if h.Now != nil {
		now = h.Now()
	}
	if err := listing.AddImage(publicURL, now); err != nil {
		return nil, err
	}
	if err := unit.Listings().Save(ctx, listing); err != nil {
		return nil, err
	}
	listing.ClearEvents()
	if h.Logger != nil {
		h.Logger.Info("listing photo added", "listing_id", listing.ID, "object_key", objectKey)
	}
	view := dto.MapListing(listing)
	return &view, nil
}
