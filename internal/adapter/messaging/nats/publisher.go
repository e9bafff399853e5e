package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jlmsdev/webCarros/internal/listing/domain"
	"github.com/jlmsdev/webCarros/internal/platform/logger"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("webcarros/nats-publisher")

const (
	SubjectListingCreated = "listing.created"
	SubjectListingDeleted = "listing.deleted"
	SubjectImageOrphaned  = "listing.image.orphaned"
)

// msgPublisher is the part of *nats.Conn the publisher needs.
type msgPublisher interface {
	PublishMsg(m *nats.Msg) error
}

type Publisher struct {
	conn   *nats.Conn
	pub    msgPublisher
	logger *logger.Logger
}

func NewPublisher(url string, log *logger.Logger, appName string) (*Publisher, error) {
	log.Info("NATS Publisher: connecting...", zap.String("url", url))

	opts := []nats.Option{
		nats.Name(fmt.Sprintf("%s NATS Publisher", appName)),
		nats.Timeout(10 * time.Second),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			log.Error("NATS error", zap.String("subject", subject), zap.Error(err))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Info("NATS connection closed")
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		log.Error("NATS Publisher: failed to connect", zap.String("url", url), zap.Error(err))
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	log.Info("NATS Publisher: successfully connected", zap.String("url", conn.ConnectedUrl()))

	return &Publisher{
		conn:   conn,
		pub:    conn,
		logger: log.Named("NATSPublisher"),
	}, nil
}

func (p *Publisher) Publish(ctx context.Context, subject string, data interface{}) error {
	ctx, span := tracer.Start(ctx, fmt.Sprintf("NATS.Publish.%s", subject))
	defer span.End()

	jsonData, err := json.Marshal(data)
	if err != nil {
		p.logger.Error("NATS Publisher: failed to marshal data to JSON", zap.String("subject", subject), zap.Error(err))
		span.RecordError(err)
		return fmt.Errorf("failed to marshal data for subject %s: %w", subject, err)
	}

	msg := nats.NewMsg(subject)
	msg.Data = jsonData
	otel.GetTextMapPropagator().Inject(ctx, NATSHeaderCarrier(msg.Header))

	if err := p.pub.PublishMsg(msg); err != nil {
		p.logger.Error("NATS Publisher: failed to publish message", zap.String("subject", subject), zap.Error(err))
		span.RecordError(err)
		return fmt.Errorf("failed to publish message to subject %s: %w", subject, err)
	}

	p.logger.Debug("NATS Publisher: message published", zap.String("subject", subject), zap.Int("data_size_bytes", len(jsonData)))
	return nil
}

type ListingCreatedEvent struct {
	ListingID  string    `json:"listingId"`
	OwnerID    string    `json:"ownerId"`
	Name       string    `json:"name"`
	City       string    `json:"city"`
	ImageCount int       `json:"imageCount"`
	Created    time.Time `json:"created"`
}

type ListingDeletedEvent struct {
	ListingID     string   `json:"listingId"`
	ImagesDeleted int      `json:"imagesDeleted"`
	OrphanedKeys  []string `json:"orphanedKeys,omitempty"`
}

type ImageOrphanedEvent struct {
	ListingID string `json:"listingId"`
	Key       string `json:"key"`
	Reason    string `json:"reason"`
}

func (p *Publisher) PublishListingCreated(ctx context.Context, listing *domain.Listing) error {
	return p.Publish(ctx, SubjectListingCreated, ListingCreatedEvent{
		ListingID:  listing.ID,
		OwnerID:    listing.UID,
		Name:       listing.Name,
		City:       listing.City,
		ImageCount: len(listing.Images),
		Created:    listing.Created,
	})
}

func (p *Publisher) PublishListingDeleted(ctx context.Context, outcome *domain.DeleteOutcome) error {
	evt := ListingDeletedEvent{ListingID: outcome.ListingID, ImagesDeleted: outcome.ImagesDeleted}
	for _, f := range outcome.Failures {
		evt.OrphanedKeys = append(evt.OrphanedKeys, f.Key)
	}
	return p.Publish(ctx, SubjectListingDeleted, evt)
}

// PublishImageOrphaned reports a blob that outlived its listing so a sweeper can retry.
func (p *Publisher) PublishImageOrphaned(ctx context.Context, listingID string, failure domain.ImageFailure) error {
	reason := ""
	if failure.Err != nil {
		reason = failure.Err.Error()
	}
	return p.Publish(ctx, SubjectImageOrphaned, ImageOrphanedEvent{
		ListingID: listingID,
		Key:       failure.Key,
		Reason:    reason,
	})
}

type NATSHeaderCarrier nats.Header

func (c NATSHeaderCarrier) Get(key string) string {
	return nats.Header(c).Get(key)
}

func (c NATSHeaderCarrier) Set(key string, value string) {
	nats.Header(c).Set(key, value)
}

func (c NATSHeaderCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() {
	if p.conn == nil || p.conn.IsClosed() {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.logger.Error("NATS Publisher: failed to drain connection", zap.Error(err))
	}
	p.conn.Close()
	p.logger.Info("NATS Publisher: connection closed")
}
