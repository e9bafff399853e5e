package nats

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jlmsdev/webCarros/internal/listing/domain"
	"github.com/jlmsdev/webCarros/internal/platform/logger"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	msgs []*nats.Msg
	err  error
}

func (r *recordingPublisher) PublishMsg(m *nats.Msg) error {
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, m)
	return nil
}

func newTestPublisher(rec *recordingPublisher) *Publisher {
	return &Publisher{pub: rec, logger: logger.NewNop()}
}

func TestPublishListingCreated(t *testing.T) {
	rec := &recordingPublisher{}
	p := newTestPublisher(rec)
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	err := p.PublishListingCreated(context.Background(), &domain.Listing{
		ID: "l1", UID: "u1", Name: "HONDA CIVIC", City: "Campo Grande", Created: created,
		Images: []domain.ImageRecord{{Name: "a1"}, {Name: "a2"}},
	})
	require.NoError(t, err)
	require.Len(t, rec.msgs, 1)
	assert.Equal(t, SubjectListingCreated, rec.msgs[0].Subject)

	var evt ListingCreatedEvent
	require.NoError(t, json.Unmarshal(rec.msgs[0].Data, &evt))
	assert.Equal(t, "l1", evt.ListingID)
	assert.Equal(t, "u1", evt.OwnerID)
	assert.Equal(t, 2, evt.ImageCount)
	assert.True(t, created.Equal(evt.Created))
}

func TestPublishListingDeleted_CarriesOrphanedKeys(t *testing.T) {
	rec := &recordingPublisher{}
	p := newTestPublisher(rec)

	err := p.PublishListingDeleted(context.Background(), &domain.DeleteOutcome{
		ListingID:     "l1",
		ImagesDeleted: 1,
		Failures:      []domain.ImageFailure{{Name: "a2", Key: "images/u1/a2", Err: errors.New("timeout")}},
	})
	require.NoError(t, err)
	require.Len(t, rec.msgs, 1)
	assert.Equal(t, SubjectListingDeleted, rec.msgs[0].Subject)

	var evt ListingDeletedEvent
	require.NoError(t, json.Unmarshal(rec.msgs[0].Data, &evt))
	assert.Equal(t, 1, evt.ImagesDeleted)
	assert.Equal(t, []string{"images/u1/a2"}, evt.OrphanedKeys)
}

func TestPublishImageOrphaned(t *testing.T) {
	rec := &recordingPublisher{}
	p := newTestPublisher(rec)

	err := p.PublishImageOrphaned(context.Background(), "l1", domain.ImageFailure{Key: "images/u1/a2", Err: errors.New("timeout")})
	require.NoError(t, err)
	require.Len(t, rec.msgs, 1)
	assert.Equal(t, SubjectImageOrphaned, rec.msgs[0].Subject)

	var evt ImageOrphanedEvent
	require.NoError(t, json.Unmarshal(rec.msgs[0].Data, &evt))
	assert.Equal(t, "images/u1/a2", evt.Key)
	assert.Equal(t, "timeout", evt.Reason)
}

func TestPublish_ConnectionError(t *testing.T) {
	p := newTestPublisher(&recordingPublisher{err: nats.ErrConnectionClosed})

	err := p.Publish(context.Background(), "any", map[string]string{"k": "v"})
	assert.ErrorIs(t, err, nats.ErrConnectionClosed)
}

func TestPublish_MarshalError(t *testing.T) {
	rec := &recordingPublisher{}
	p := newTestPublisher(rec)

	err := p.Publish(context.Background(), "any", make(chan int))
	assert.Error(t, err)
	assert.Empty(t, rec.msgs)
}

func TestHeaderCarrier(t *testing.T) {
	c := NATSHeaderCarrier(nats.Header{})
	c.Set("traceparent", "00-abc")
	assert.Equal(t, "00-abc", c.Get("traceparent"))
	assert.Equal(t, []string{"traceparent"}, c.Keys())
}
