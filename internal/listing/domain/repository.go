package domain

import (
	"context"
	"time"
)

type ListingRepository interface {
	// Create stores the listing and fills in ID and Created.
	Create(ctx context.Context, listing *Listing) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*Listing, error)
	Find(ctx context.Context, q SearchQuery) ([]*Listing, error)
}

type DraftRepository interface {
	// Get returns the owner's draft, or a fresh empty one.
	Get(ctx context.Context, ownerID string) (*Draft, error)
	Save(ctx context.Context, draft *Draft) error
	// Update applies fn to the current draft and stores the result atomically
	// with respect to other writers of the same owner. An error from fn aborts
	// the update and is returned unchanged.
	Update(ctx context.Context, ownerID string, fn func(*Draft) error) (*Draft, error)
	Delete(ctx context.Context, ownerID string) error
}

type ListingCache interface {
	GetListing(ctx context.Context, id string) (*Listing, error)
	SetListing(ctx context.Context, listing *Listing) error
	DeleteListing(ctx context.Context, id string) error
}

// Storage is the external blob store.
type Storage interface {
	Upload(ctx context.Context, key, contentType string, data []byte) error
	// URL returns a durable, publicly fetchable URL for key.
	URL(ctx context.Context, key string) (string, error)
	// PreviewURL returns a short-lived URL for key.
	PreviewURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	// Delete removes key. A missing key yields an error wrapping ErrBlobNotFound.
	Delete(ctx context.Context, key string) error
}

type EventPublisher interface {
	PublishListingCreated(ctx context.Context, listing *Listing) error
	PublishListingDeleted(ctx context.Context, outcome *DeleteOutcome) error
	PublishImageOrphaned(ctx context.Context, listingID string, failure ImageFailure) error
}

type Notifier interface {
	SendListingCreatedEmail(toEmail, listingName string) error
}
