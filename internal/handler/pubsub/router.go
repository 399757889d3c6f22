package pubsub

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/webitel/event-broker/config"
	pubsubadapter "github.com/webitel/event-broker/internal/adapter/pubsub"
	"github.com/webitel/event-broker/internal/domain/registry"
)

const (
	// ------------------- TOPICS -------------------
	TopicInputCommands = "input.commands.v1"
	InputPoisonTopic   = "input.commands.v1.poison"

	// ------------------- HANDLERS -----------------
	HandlerInputCommand = "ON_INPUT_COMMAND"
)

type MessageHandler struct {
	broker     registry.Broker
	logger     *slog.Logger
	dispatcher pubsubadapter.EventDispatcher
	wmLogger   watermill.LoggerAdapter
	cfg        config.IngressConfig
}

func NewMessageHandler(
	broker registry.Broker,
	logger *slog.Logger,
	dispatcher pubsubadapter.EventDispatcher,
	wmLogger watermill.LoggerAdapter,
	cfg *config.Config,
) *MessageHandler {
	return &MessageHandler{
		broker:     broker,
		logger:     logger.With("component", "ingress"),
		dispatcher: dispatcher,
		wmLogger:   wmLogger,
		cfg:        cfg.Ingress,
	}
}

// NewWatermillRouter builds the router; the fx lifecycle in Module runs it.
func NewWatermillRouter(logger watermill.LoggerAdapter) (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: 5 * time.Second}, logger)
	if err != nil {
		return nil, fmt.Errorf("ROUTER_SETUP_FAILED: %w", err)
	}

	// [LAST_RESORT] converts handler panics that escaped Bind into errors
	router.AddMiddleware(middleware.Recoverer)
	return router, nil
}

// [REGISTRATION_PIPELINE]
func (h *MessageHandler) RegisterHandlers(router *message.Router, sub message.Subscriber) error {
	poison, err := middleware.PoisonQueue(h.dispatcher.Publisher(), InputPoisonTopic)
	if err != nil {
		return fmt.Errorf("POISON_SETUP_FAILED: %w", err)
	}

	configs := []struct {
		name    string
		topic   string
		handler message.NoPublishHandlerFunc
	}{
		{HandlerInputCommand, TopicInputCommands, Bind(h, h.OnInputCommandV1)},
	}

	for _, c := range configs {
		// Outermost first: a message that exhausts its retries lands on the poison topic.
		chain := []message.HandlerMiddleware{
			TraceIDMiddleware,
			LoggingMiddleware(h.logger),
			poison,
			NewRetryMiddleware(h.cfg.MaxRetries, h.wmLogger).Middleware,
		}
		if h.cfg.ThrottlePerSecond > 0 {
			chain = append(chain, middleware.NewThrottle(h.cfg.ThrottlePerSecond, time.Second).Middleware)
		}
		if h.cfg.HandlerTimeout > 0 {
			chain = append(chain, middleware.Timeout(h.cfg.HandlerTimeout))
		}

		router.AddConsumerHandler(c.name, c.topic, sub, c.handler).AddMiddleware(chain...)
	}

	h.logger.Info("INGRESS_PIPELINE_READY", "topic", TopicInputCommands, "poison", InputPoisonTopic)
	return nil
}
