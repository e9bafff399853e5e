package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jlmsdev/webCarros/internal/listing/domain"
	"github.com/redis/go-redis/v9"
)

const (
	draftKeyPrefix = "draft:"
	// maxDraftRetries bounds the optimistic retry loop in Update.
	maxDraftRetries = 10
)

// ErrDraftContended is returned when Update keeps losing the race for a draft key.
var ErrDraftContended = errors.New("draft changed concurrently, retries exhausted")

// DraftStore keeps one draft per owner. Each save refreshes the TTL, so an
// abandoned draft expires on its own.
type DraftStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewDraftStore(client *redis.Client, ttl time.Duration) *DraftStore {
	return &DraftStore{client: client, ttl: ttl}
}

// getter is satisfied by both *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func loadDraft(ctx context.Context, c getter, ownerID string) (*domain.Draft, error) {
	data, err := c.Get(ctx, draftKeyPrefix+ownerID).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.NewDraft(ownerID), nil
	}
	if err != nil {
		return nil, err
	}
	var draft domain.Draft
	if err := json.Unmarshal(data, &draft); err != nil {
		return nil, fmt.Errorf("decode draft for %s: %w", ownerID, err)
	}
	if draft.Images == nil {
		draft.Images = []domain.ImageRecord{}
	}
	draft.OwnerID = ownerID
	return &draft, nil
}

func (s *DraftStore) Get(ctx context.Context, ownerID string) (*domain.Draft, error) {
	return loadDraft(ctx, s.client, ownerID)
}

func (s *DraftStore) Save(ctx context.Context, draft *domain.Draft) error {
	if draft.OwnerID == "" {
		return errors.New("draft has no owner")
	}
	data, err := json.Marshal(draft)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, draftKeyPrefix+draft.OwnerID, data, s.ttl).Err()
}

// Update runs fn inside a WATCH/MULTI transaction on the draft key and retries
// when another writer touched the key in between.
func (s *DraftStore) Update(ctx context.Context, ownerID string, fn func(*domain.Draft) error) (*domain.Draft, error) {
	if ownerID == "" {
		return nil, errors.New("draft has no owner")
	}
	key := draftKeyPrefix + ownerID

	var result *domain.Draft
	txf := func(tx *redis.Tx) error {
		draft, err := loadDraft(ctx, tx, ownerID)
		if err != nil {
			return err
		}
		if err := fn(draft); err != nil {
			return err
		}
		data, err := json.Marshal(draft)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		if err == nil {
			result = draft
		}
		return err
	}

	for i := 0; i < maxDraftRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}
	return nil, ErrDraftContended
}

func (s *DraftStore) Delete(ctx context.Context, ownerID string) error {
	return s.client.Del(ctx, draftKeyPrefix+ownerID).Err()
}
