// Package handlerwrapper adapts typed transformation handlers to watermill.
package handlerwrapper

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Black-And-White-Club/spinboard/internal/observability"
)

// Result is one outgoing message produced by a handler.
type Result struct {
	Topic    string
	Payload  any
	Metadata map[string]string
}

// HandlerFunc is a pure transformation from an incoming payload to outgoing results.
type HandlerFunc[T any] func(ctx context.Context, payload *T) ([]Result, error)

// WrapTransformingTyped decodes the message into T, runs handler and
// publishes every result with the incoming correlation id.
//
// Undecodable payloads are logged and acked. Handler errors are returned so
// the router nacks and the message is redelivered.
func WrapTransformingTyped[T any](
	handlerName string,
	logger *slog.Logger,
	tracer trace.Tracer,
	publisher message.Publisher,
	metrics observability.OperationMetrics,
	handler HandlerFunc[T],
) message.NoPublishHandlerFunc {
	if metrics == nil {
		metrics = observability.NoOpMetrics{}
	}

	return func(msg *message.Message) error {
		correlationID := middleware.MessageCorrelationID(msg)
		ctx := WithCorrelationID(msg.Context(), correlationID)
		ctx, span := tracer.Start(ctx, handlerName, trace.WithAttributes(
			attribute.String("message.uuid", msg.UUID),
			attribute.String("correlation_id", correlationID),
		))
		defer span.End()

		start := time.Now()
		metrics.RecordOperationAttempt(ctx, handlerName)
		defer func() {
			metrics.RecordOperationDuration(ctx, handlerName, time.Since(start))
		}()

		payload := new(T)
		if err := json.Unmarshal(msg.Payload, payload); err != nil {
			logger.ErrorContext(ctx, "Dropping undecodable message",
				"handler", handlerName,
				"message_id", msg.UUID,
				"correlation_id", correlationID,
				"error", err,
			)
			metrics.RecordOperationFailure(ctx, handlerName, "decode")
			span.RecordError(err)
			return nil
		}

		results, err := handler(ctx, payload)
		if err != nil {
			logger.ErrorContext(ctx, "Handler failed",
				"handler", handlerName,
				"message_id", msg.UUID,
				"correlation_id", correlationID,
				"error", err,
			)
			metrics.RecordOperationFailure(ctx, handlerName, "handler")
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}

		for _, res := range results {
			out, err := NewMessage(msg, res)
			if err != nil {
				metrics.RecordOperationFailure(ctx, handlerName, "encode")
				return err
			}
			if err := publisher.Publish(res.Topic, out); err != nil {
				metrics.RecordOperationFailure(ctx, handlerName, "publish")
				return fmt.Errorf("publish to %s: %w", res.Topic, err)
			}
		}

		metrics.RecordOperationSuccess(ctx, handlerName)
		return nil
	}
}

type correlationKey struct{}

// WithCorrelationID stores id in ctx so messages published further down the
// call chain keep it.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID returns the id stored by WithCorrelationID.
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// NewMessageFromContext encodes a result for publishing outside a handler,
// taking the correlation id from ctx.
func NewMessageFromContext(ctx context.Context, res Result) (*message.Message, error) {
	out, err := NewMessage(nil, res)
	if err != nil {
		return nil, err
	}
	if id := CorrelationID(ctx); id != "" {
		middleware.SetCorrelationID(id, out)
	}
	out.SetContext(ctx)
	return out, nil
}

// NewMessage encodes a result as a watermill message carrying the parent's
// correlation id. parent may be nil.
func NewMessage(parent *message.Message, res Result) (*message.Message, error) {
	body, err := json.Marshal(res.Payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload for %s: %w", res.Topic, err)
	}

	out := message.NewMessage(uuid.New().String(), body)
	correlationID := ""
	if parent != nil {
		correlationID = middleware.MessageCorrelationID(parent)
		out.SetContext(parent.Context())
	}
	if correlationID == "" {
		correlationID = uuid.New().String()
	}
	middleware.SetCorrelationID(correlationID, out)
	out.Metadata.Set("topic", res.Topic)
	for k, v := range res.Metadata {
		out.Metadata.Set(k, v)
	}
	return out, nil
}
