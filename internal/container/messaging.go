package container

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/samber/do"
	"github.com/serroba/storefront-api/internal/audit"
	"github.com/serroba/storefront-api/internal/messaging"
	"github.com/serroba/storefront-api/internal/store"
	"go.uber.org/zap"
)

// AuditConsumerGroup is the Redis stream consumer group of the audit consumer.
const AuditConsumerGroup = "rejection-audit"

// PublisherGroupPackage provides the rejection recorder. With auditing off
// the recorder drops events and Redis is never contacted.
func PublisherGroupPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		client := do.MustInvoke[*RedisClient](i)
		logger := do.MustInvoke[*zap.Logger](i)

		publisher, err := redisstream.NewPublisher(
			redisstream.PublisherConfig{
				Client:     client.Client,
				Marshaller: redisstream.DefaultMarshallerUnmarshaller{},
			},
			messaging.NewZapAdapter(logger),
		)
		if err != nil {
			return nil, fmt.Errorf("create publisher: %w", err)
		}

		return messaging.NewPublisherGroup(publisher), nil
	})

	do.Provide(injector, func(i *do.Injector) (*audit.Recorder, error) {
		opts := do.MustInvoke[*Options](i)
		if !opts.Audit {
			return audit.NewRecorder(nil)
		}

		group := do.MustInvoke[*messaging.PublisherGroup](i)

		return audit.NewRecorder(
			messaging.NewPublishFunc[audit.RejectionEvent](group.Publisher(), audit.TopicRejected),
		)
	})
}

// ConsumerGroupPackage provides the consumer group that persists rejection
// events. Events go to PostgreSQL when a database URL is set and to the log
// otherwise.
func ConsumerGroupPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (audit.Store, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if opts.DatabaseURL == "" {
			return store.NewAuditNoop(logger), nil
		}

		pool := do.MustInvoke[*PostgresPool](i)
		auditStore := store.NewAuditPostgresStore(pool.Pool)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := auditStore.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure audit schema: %w", err)
		}

		return auditStore, nil
	})

	do.Provide(injector, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		client := do.MustInvoke[*RedisClient](i)
		logger := do.MustInvoke[*zap.Logger](i)
		auditStore := do.MustInvoke[audit.Store](i)

		subscriber, err := redisstream.NewSubscriber(
			redisstream.SubscriberConfig{
				Client:        client.Client,
				Unmarshaller:  redisstream.DefaultMarshallerUnmarshaller{},
				ConsumerGroup: AuditConsumerGroup,
			},
			messaging.NewZapAdapter(logger),
		)
		if err != nil {
			return nil, fmt.Errorf("create subscriber: %w", err)
		}

		group := messaging.NewConsumerGroup(subscriber, logger)
		group.Add(messaging.NewConsumer[audit.RejectionEvent](
			subscriber,
			audit.TopicRejected,
			auditStore.SaveRejection,
			logger,
		))

		return group, nil
	})
}
