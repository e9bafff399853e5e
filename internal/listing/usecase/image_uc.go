package usecase

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/jlmsdev/webCarros/internal/listing/domain"
	"github.com/jlmsdev/webCarros/internal/platform/logger"
	"github.com/jlmsdev/webCarros/internal/platform/metrics"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var acceptedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// ImageUsecase uploads draft images to the blob store and removes them again.
type ImageUsecase struct {
	storage    domain.Storage
	drafts     domain.DraftRepository
	metrics    *metrics.Manager
	logger     *logger.Logger
	previewTTL time.Duration
	newName    func() string
}

// NewImageUsecase names each upload with a random UUID; previewTTL bounds the
// lifetime of the signed preview URL.
func NewImageUsecase(storage domain.Storage, drafts domain.DraftRepository, m *metrics.Manager, log *logger.Logger, previewTTL time.Duration) *ImageUsecase {
	return &ImageUsecase{
		storage:    storage,
		drafts:     drafts,
		metrics:    m,
		logger:     log.Named("ImageUsecase"),
		previewTTL: previewTTL,
		newName:    func() string { return uuid.New().String() },
	}
}

// mediaType returns the declared content type, falling back to content sniffing
// when the client sent none or a generic one.
func mediaType(upload domain.Upload) string {
	declared := upload.ContentType
	if declared == "" || declared == "application/octet-stream" {
		return mimetype.Detect(upload.Data).String()
	}
	if mt, _, err := mime.ParseMediaType(declared); err == nil {
		return mt
	}
	return declared
}

// SubmitImage stores one image and appends it to the owner's draft.
func (uc *ImageUsecase) SubmitImage(ctx context.Context, session domain.Session, upload domain.Upload) (*domain.ImageRecord, error) {
	ctx, span := tracer.Start(ctx, "ImageUsecase.SubmitImage", oteltrace.WithAttributes(
		attribute.String("owner_id", session.UserID),
		attribute.String("content_type", upload.ContentType),
		attribute.Int("size_bytes", len(upload.Data)),
	))
	defer span.End()

	mt := mediaType(upload)
	if !acceptedImageTypes[mt] || len(upload.Data) == 0 {
		uc.logger.Warn("rejected image upload", zap.String("owner_id", session.UserID), zap.String("media_type", mt), zap.Int("size_bytes", len(upload.Data)))
		uc.metrics.ImageRejected()
		return nil, domain.ErrUnsupportedMediaType
	}

	name := uc.newName()
	key := domain.ImageKey(session.UserID, name)

	if err := uc.storage.Upload(ctx, key, mt, upload.Data); err != nil {
		uc.logger.Error("image upload failed", zap.String("key", key), zap.Error(err))
		span.RecordError(err)
		return nil, domain.Remote("upload image", err)
	}
	url, err := uc.storage.URL(ctx, key)
	if err != nil {
		uc.logger.Error("resolving image URL failed", zap.String("key", key), zap.Error(err))
		span.RecordError(err)
		return nil, domain.Remote("resolve image url", err)
	}
	preview, err := uc.storage.PreviewURL(ctx, key, uc.previewTTL)
	if err != nil {
		uc.logger.Warn("preview URL unavailable, using durable URL", zap.String("key", key), zap.Error(err))
		preview = url
	}

	rec := domain.ImageRecord{UID: session.UserID, Name: name, PreviewURL: preview, URL: url}

	draft, err := uc.drafts.Update(ctx, session.UserID, func(d *domain.Draft) error {
		d.AddImage(rec)
		return nil
	})
	if err != nil {
		uc.logger.Error("recording image in draft failed", zap.String("key", key), zap.Error(err))
		span.RecordError(err)
		return nil, domain.Remote("save draft", err)
	}

	uc.metrics.ImageUploaded()
	uc.logger.Info("image stored", zap.String("owner_id", session.UserID), zap.String("name", name), zap.Int("draft_images", len(draft.Images)))
	return &rec, nil
}

// RemoveImage drops the draft record, then deletes the blob. When the blob
// delete fails the record is put back at its old position, so the draft
// never points at a deleted blob and a failed draft write never orphans one.
func (uc *ImageUsecase) RemoveImage(ctx context.Context, session domain.Session, name string) error {
	ctx, span := tracer.Start(ctx, "ImageUsecase.RemoveImage", oteltrace.WithAttributes(
		attribute.String("owner_id", session.UserID),
		attribute.String("name", name),
	))
	defer span.End()

	var (
		rec   domain.ImageRecord
		index int
	)
	_, err := uc.drafts.Update(ctx, session.UserID, func(d *domain.Draft) error {
		index = d.ImageIndex(name)
		if index < 0 {
			return domain.ErrImageNotFound
		}
		rec = d.Images[index]
		d.RemoveImage(name)
		return nil
	})
	if errors.Is(err, domain.ErrImageNotFound) {
		return err
	}
	if err != nil {
		span.RecordError(err)
		return domain.Remote("save draft", err)
	}

	if err := uc.storage.Delete(ctx, rec.StorageKey()); err != nil {
		uc.logger.Error("image delete failed, restoring draft record", zap.String("key", rec.StorageKey()), zap.Error(err))
		uc.metrics.ImageDeleteFailed("draft")
		span.RecordError(err)
		uc.restoreImage(ctx, session.UserID, index, rec)
		return domain.Remote(fmt.Sprintf("delete image %s", name), err)
	}

	uc.logger.Info("image removed", zap.String("owner_id", session.UserID), zap.String("name", name))
	return nil
}

func (uc *ImageUsecase) restoreImage(ctx context.Context, ownerID string, index int, rec domain.ImageRecord) {
	_, err := uc.drafts.Update(ctx, ownerID, func(d *domain.Draft) error {
		d.InsertImage(index, rec)
		return nil
	})
	if err != nil {
		// The blob is still there but no draft references it.
		uc.logger.Error("restoring draft record failed", zap.String("key", rec.StorageKey()), zap.Error(err))
		uc.metrics.ImageDeleteFailed("restore")
	}
}
