package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/jlmsdev/webCarros/internal/listing/domain"
	"github.com/jlmsdev/webCarros/internal/platform/logger"
	"github.com/jlmsdev/webCarros/internal/platform/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("webcarros/listing-usecase")

// ListingUsecase owns the listing lifecycle: submit, search, view and delete.
type ListingUsecase struct {
	repo      domain.ListingRepository
	drafts    domain.DraftRepository
	storage   domain.Storage
	cache     domain.ListingCache
	events    domain.EventPublisher
	notifier  domain.Notifier
	validator *DraftValidator
	metrics   *metrics.Manager
	logger    *logger.Logger
}

// ListingDeps groups the collaborators of ListingUsecase. Cache, Events,
// Notifier and Metrics are optional and may be left nil.
type ListingDeps struct {
	Repo      domain.ListingRepository
	Drafts    domain.DraftRepository
	Storage   domain.Storage
	Cache     domain.ListingCache
	Events    domain.EventPublisher
	Notifier  domain.Notifier
	Validator *DraftValidator
	Metrics   *metrics.Manager
}

// NewListingUsecase builds the usecase from its deps, falling back to the
// default field validator when none is given.
func NewListingUsecase(deps ListingDeps, log *logger.Logger) *ListingUsecase {
	validator := deps.Validator
	if validator == nil {
		validator = NewDraftValidator()
	}
	return &ListingUsecase{
		repo:      deps.Repo,
		drafts:    deps.Drafts,
		storage:   deps.Storage,
		cache:     deps.Cache,
		events:    deps.Events,
		notifier:  deps.Notifier,
		validator: validator,
		metrics:   deps.Metrics,
		logger:    log.Named("ListingUsecase"),
	}
}

// SubmitListing persists the owner's draft as a listing and clears the draft.
func (uc *ListingUsecase) SubmitListing(ctx context.Context, session domain.Session) (*domain.Listing, error) {
	ctx, span := tracer.Start(ctx, "ListingUsecase.SubmitListing", oteltrace.WithAttributes(
		attribute.String("owner_id", session.UserID),
	))
	defer span.End()

	draft, err := uc.drafts.Get(ctx, session.UserID)
	if err != nil {
		span.RecordError(err)
		return nil, domain.Remote("load draft", err)
	}
	if len(draft.Images) == 0 {
		uc.logger.Warn("submission without images rejected", zap.String("owner_id", session.UserID))
		return nil, domain.ErrNoImageAttached
	}
	if verr := uc.validator.Validate(draft.Fields); verr != nil {
		uc.logger.Warn("submission failed validation", zap.String("owner_id", session.UserID), zap.Any("fields", verr.Fields))
		return nil, verr
	}

	listing := domain.NewListingFromDraft(draft, session)
	if err := uc.repo.Create(ctx, listing); err != nil {
		uc.logger.Error("failed to create listing", zap.String("owner_id", session.UserID), zap.Error(err))
		span.RecordError(err)
		return nil, domain.Remote("create listing", err)
	}
	span.SetAttributes(attribute.String("listing_id", listing.ID))

	if err := uc.drafts.Delete(ctx, session.UserID); err != nil {
		uc.logger.Warn("listing created but draft not cleared", zap.String("listing_id", listing.ID), zap.Error(err))
	}
	uc.metrics.ListingCreated()
	uc.afterCreate(ctx, session, listing)

	uc.logger.Info("listing created", zap.String("listing_id", listing.ID), zap.String("owner_id", listing.UID), zap.Int("images", len(listing.Images)))
	return listing, nil
}

func (uc *ListingUsecase) afterCreate(ctx context.Context, session domain.Session, listing *domain.Listing) {
	if uc.cache != nil {
		if err := uc.cache.SetListing(ctx, listing); err != nil {
			uc.logger.Warn("SetListing to cache failed", zap.String("listing_id", listing.ID), zap.Error(err))
		}
	}
	if uc.events != nil {
		if err := uc.events.PublishListingCreated(ctx, listing); err != nil {
			uc.logger.Warn("publishing listing.created failed", zap.String("listing_id", listing.ID), zap.Error(err))
		}
	}
	if uc.notifier != nil && session.Email != "" {
		if err := uc.notifier.SendListingCreatedEmail(session.Email, listing.Name); err != nil {
			uc.logger.Warn("listing confirmation email failed", zap.String("listing_id", listing.ID), zap.Error(err))
		}
	}
}

// DeleteListing removes the document, then tries to delete every image blob.
// Blob failures do not undo the document delete and do not stop the other
// deletions; they are reported in the outcome.
func (uc *ListingUsecase) DeleteListing(ctx context.Context, session domain.Session, id string) (*domain.DeleteOutcome, error) {
	ctx, span := tracer.Start(ctx, "ListingUsecase.DeleteListing", oteltrace.WithAttributes(
		attribute.String("listing_id", id),
		attribute.String("owner_id", session.UserID),
	))
	defer span.End()

	listing, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrListingNotFound) {
			return nil, domain.ErrListingNotFound
		}
		span.RecordError(err)
		return nil, domain.Remote("find listing", err)
	}
	if listing.UID != session.UserID {
		uc.logger.Warn("forbidden to delete listing", zap.String("listing_id", id), zap.String("listing_owner_id", listing.UID), zap.String("user_id", session.UserID))
		return nil, domain.ErrForbidden
	}

	if err := uc.repo.Delete(ctx, id); err != nil {
		uc.logger.Error("failed to delete listing document", zap.String("listing_id", id), zap.Error(err))
		span.RecordError(err)
		if errors.Is(err, domain.ErrListingNotFound) {
			return nil, domain.ErrListingNotFound
		}
		return nil, domain.Remote("delete listing", err)
	}
	if uc.cache != nil {
		if err := uc.cache.DeleteListing(ctx, id); err != nil {
			uc.logger.Warn("DeleteListing from cache failed", zap.String("listing_id", id), zap.Error(err))
		}
	}

	failures := deleteImages(ctx, uc.storage, listing.Images)
	outcome := &domain.DeleteOutcome{
		ListingID:     id,
		ImagesDeleted: len(listing.Images) - len(failures),
		Failures:      failures,
	}
	for _, f := range failures {
		uc.logger.Error("image blob left behind after listing delete", zap.String("listing_id", id), zap.String("key", f.Key), zap.Error(f.Err))
		uc.metrics.ImageDeleteFailed("teardown")
		if uc.events != nil {
			if err := uc.events.PublishImageOrphaned(ctx, id, f); err != nil {
				uc.logger.Warn("publishing listing.image.orphaned failed", zap.String("key", f.Key), zap.Error(err))
			}
		}
	}
	if uc.events != nil {
		if err := uc.events.PublishListingDeleted(ctx, outcome); err != nil {
			uc.logger.Warn("publishing listing.deleted failed", zap.String("listing_id", id), zap.Error(err))
		}
	}
	uc.metrics.ListingDeleted(outcome.Partial())
	span.SetAttributes(attribute.Int("image_failures", len(failures)))

	uc.logger.Info("listing deleted", zap.String("listing_id", id), zap.Int("images_deleted", outcome.ImagesDeleted), zap.Int("image_failures", len(failures)))
	return outcome, nil
}

// deleteImages deletes all blobs concurrently and collects the failures in
// input order.
func deleteImages(ctx context.Context, storage domain.Storage, images []domain.ImageRecord) []domain.ImageFailure {
	if len(images) == 0 {
		return nil
	}
	errs := make([]error, len(images))
	var g errgroup.Group
	for i, img := range images {
		g.Go(func() error {
			errs[i] = storage.Delete(ctx, img.StorageKey())
			return nil
		})
	}
	_ = g.Wait()

	var failures []domain.ImageFailure
	for i, err := range errs {
		if err != nil {
			failures = append(failures, domain.ImageFailure{Name: images[i].Name, Key: images[i].StorageKey(), Err: err})
		}
	}
	return failures
}

// Search returns listings whose upper-cased name starts with term, newest first.
// An empty term returns every listing.
func (uc *ListingUsecase) Search(ctx context.Context, term string) ([]*domain.Listing, error) {
	ctx, span := tracer.Start(ctx, "ListingUsecase.Search", oteltrace.WithAttributes(attribute.String("term", term)))
	defer span.End()

	q := domain.SearchQuery{Term: domain.NormalizeName(strings.TrimSpace(term))}
	listings, err := uc.repo.Find(ctx, q)
	if err != nil {
		uc.logger.Error("search failed", zap.String("term", term), zap.Error(err))
		span.RecordError(err)
		return nil, domain.Remote("search listings", err)
	}
	return listings, nil
}

// ListByOwner returns the owner's listings, newest first.
func (uc *ListingUsecase) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Listing, error) {
	listings, err := uc.repo.Find(ctx, domain.SearchQuery{OwnerID: ownerID})
	if err != nil {
		uc.logger.Error("listing by owner failed", zap.String("owner_id", ownerID), zap.Error(err))
		return nil, domain.Remote("list owner listings", err)
	}
	return listings, nil
}

func (uc *ListingUsecase) GetListing(ctx context.Context, id string) (*domain.Listing, error) {
	if uc.cache != nil {
		cached, err := uc.cache.GetListing(ctx, id)
		if err != nil {
			uc.logger.Warn("GetListing from cache failed", zap.String("listing_id", id), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	listing, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrListingNotFound) {
			return nil, domain.ErrListingNotFound
		}
		return nil, domain.Remote("find listing", err)
	}
	if uc.cache != nil {
		if err := uc.cache.SetListing(ctx, listing); err != nil {
			uc.logger.Warn("SetListing to cache failed", zap.String("listing_id", id), zap.Error(err))
		}
	}
	return listing, nil
}
