package app

import (
	"context"
	"fmt"

	"github.com/go-chi/chi/v5/middleware"

	"backoffice/config"
	"backoffice/logging"
	"backoffice/messaging"
	"backoffice/messaging/transport/memory"
	"backoffice/messaging/transport/natsjetstream"
	"backoffice/messaging/transport/redisstreams"
	synctransport "backoffice/messaging/transport/sync"
)

func openTransport(cfg config.AuditConfig, logger logging.Logger) (messaging.Transport, error) {
	switch cfg.Transport {
	case config.TransportMemory, "":
		return memory.NewTransport(cfg.QueueSize, cfg.Workers, memory.WithLogger(logger)), nil
	case config.TransportSync:
		return synctransport.NewTransport(), nil
	case config.TransportNATS:
		return natsjetstream.NewTransport(natsjetstream.Config{
			URL:    cfg.NATSURL,
			Stream: cfg.NATSStream,
			Logger: logger,
		}), nil
	case config.TransportRedis:
		return redisstreams.NewTransport(redisstreams.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Logger:   logger,
		}), nil
	}
	return nil, fmt.Errorf("unknown audit transport %q", cfg.Transport)
}

// newAuditBus 在传输之上挂载请求 id 透传
func newAuditBus(transport messaging.Transport) *messaging.MessageBus {
	bus := messaging.NewMessageBus(transport)
	bus.Use(messaging.NewMiddleware("request-id", func(ctx context.Context, msg messaging.IMessage, next messaging.HandlerFunc) error {
		if id := middleware.GetReqID(ctx); id != "" {
			msg.GetMetadata()["requestId"] = id
		}
		return next(ctx, msg)
	}))
	return bus
}
