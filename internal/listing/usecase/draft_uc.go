package usecase

import (
	"context"
	"time"

	"github.com/jlmsdev/webCarros/internal/listing/domain"
	"github.com/jlmsdev/webCarros/internal/platform/logger"
	"go.uber.org/zap"
)

// DraftUsecase reads, edits and discards the per-owner draft.
type DraftUsecase struct {
	drafts    domain.DraftRepository
	storage   domain.Storage
	validator *DraftValidator
	logger    *logger.Logger
}

// NewDraftUsecase wires the draft store and the blob store used on discard.
func NewDraftUsecase(drafts domain.DraftRepository, storage domain.Storage, validator *DraftValidator, log *logger.Logger) *DraftUsecase {
	return &DraftUsecase{
		drafts:    drafts,
		storage:   storage,
		validator: validator,
		logger:    log.Named("DraftUsecase"),
	}
}

func (uc *DraftUsecase) GetDraft(ctx context.Context, session domain.Session) (*domain.Draft, error) {
	draft, err := uc.drafts.Get(ctx, session.UserID)
	if err != nil {
		return nil, domain.Remote("load draft", err)
	}
	return draft, nil
}

// UpdateDraft stores the fields as typed and reports which of them are invalid.
// Invalid fields are saved too; validation only gates submission.
func (uc *DraftUsecase) UpdateDraft(ctx context.Context, session domain.Session, fields domain.DraftFields) (*domain.Draft, *domain.ValidationError, error) {
	// Only the fields are replaced; images appended concurrently survive.
	draft, err := uc.drafts.Update(ctx, session.UserID, func(d *domain.Draft) error {
		d.Fields = fields
		d.UpdatedAt = time.Now().UTC()
		return nil
	})
	if err != nil {
		return nil, nil, domain.Remote("save draft", err)
	}
	return draft, uc.validator.Validate(fields), nil
}

// DiscardDraft drops the draft and makes a best-effort attempt to delete its blobs.
func (uc *DraftUsecase) DiscardDraft(ctx context.Context, session domain.Session) ([]domain.ImageFailure, error) {
	draft, err := uc.drafts.Get(ctx, session.UserID)
	if err != nil {
		return nil, domain.Remote("load draft", err)
	}
	failures := deleteImages(ctx, uc.storage, draft.Images)
	for _, f := range failures {
		uc.logger.Warn("draft image left behind", zap.String("key", f.Key), zap.Error(f.Err))
	}
	if err := uc.drafts.Delete(ctx, session.UserID); err != nil {
		return failures, domain.Remote("delete draft", err)
	}
	return failures, nil
}
