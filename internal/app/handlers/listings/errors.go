package listings

import "errors"

var (
	ErrNotOwner            = errors.New("listings: not authorized to modify this listing")
	ErrPhotoType           = errors.New("listings: photo must be a jpeg, png or webp image")
	ErrPhotoTooLarge       = errors.New("listings: photo exceeds size limit")
	ErrPhotoStorageMissing = errors.New("listings: photo storage unavailable")
)
