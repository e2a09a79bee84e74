package gateway

import (
	"context"
	"log/slog"
	"time"
)

type ctxKey int

const (
	operationKey ctxKey = iota
	userKey
)

// WithOperation tags outgoing gateway calls with the feature and caller that made them.
func WithOperation(ctx context.Context, operation, userID string) context.Context {
	ctx = context.WithValue(ctx, operationKey, operation)
	return context.WithValue(ctx, userKey, userID)
}

func OperationFrom(ctx context.Context) string {
	v, _ := ctx.Value(operationKey).(string)
	return v
}

func userFrom(ctx context.Context) string {
	v, _ := ctx.Value(userKey).(string)
	return v
}

// CallRecord is one audited gateway call.
type CallRecord struct {
	Operation  string
	UserID     string
	Backend    string
	Model      string
	Status     string
	ErrorType  string
	DurationMS int64
}

type Auditor interface {
	RecordCall(ctx context.Context, rec CallRecord) error
}

type Observer interface {
	ObserveGatewayCall(backend, model, outcome string, d time.Duration)
}

// Instrumented wraps a Client with metrics, logging and an optional audit sink.
type Instrumented struct {
	next    Client
	backend string
	obs     Observer
	audit   Auditor
	logger  *slog.Logger
}

func Instrument(next Client, backend string, obs Observer, audit Auditor) *Instrumented {
	return &Instrumented{
		next:    next,
		backend: backend,
		obs:     obs,
		audit:   audit,
		logger:  slog.Default().With("component", "gateway", "backend", backend),
	}
}

func (c *Instrumented) Invoke(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	start := time.Now()
	resp, err := c.next.Invoke(ctx, req)
	elapsed := time.Since(start)

	outcome := "ok"
	if err != nil {
		outcome = string(ClassifyError(err))
	}
	if c.obs != nil {
		c.obs.ObserveGatewayCall(c.backend, req.Model, outcome, elapsed)
	}
	op := OperationFrom(ctx)
	if err != nil {
		c.logger.Warn("gateway call failed", "operation", op, "model", req.Model, "error_type", outcome, "error", err, "duration_ms", elapsed.Milliseconds())
	} else {
		c.logger.Debug("gateway call ok", "operation", op, "model", req.Model, "images", len(resp.Images), "duration_ms", elapsed.Milliseconds())
	}
	if c.audit != nil {
		rec := CallRecord{
			Operation:  op,
			UserID:     userFrom(ctx),
			Backend:    c.backend,
			Model:      req.Model,
			Status:     "ok",
			DurationMS: elapsed.Milliseconds(),
		}
		if err != nil {
			rec.Status = "error"
			rec.ErrorType = outcome
		}
		// the caller's context may already be cancelled
		if aerr := c.audit.RecordCall(context.WithoutCancel(ctx), rec); aerr != nil {
			c.logger.Warn("record gateway call", "error", aerr)
		}
	}
	return resp, err
}
