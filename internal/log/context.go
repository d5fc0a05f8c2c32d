package log

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey string

const (
	operationIDKey ctxKey = "operation_id"
	vehicleIDKey   ctxKey = "vehicle_id"
	requestIDKey   ctxKey = "request_id"
)

// ContextWithRequestID stores an HTTP request correlation id in the context.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the request id from context if present.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// ContextWithOperationID stores a coordinator operation correlation id in the context.
func ContextWithOperationID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, operationIDKey, id)
}

// ContextWithVehicleID stores the vehicle id under operation in the context.
func ContextWithVehicleID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, vehicleIDKey, id)
}

// OperationIDFromContext extracts the operation id from context if present.
func OperationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(operationIDKey).(string); ok {
		return v
	}
	return ""
}

// VehicleIDFromContext extracts the vehicle id from context if present.
func VehicleIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(vehicleIDKey).(string); ok {
		return v
	}
	return ""
}

// WithContext enriches the supplied logger with correlation fields from context.
func WithContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	if ctx == nil {
		return logger
	}
	builder := logger.With()
	added := false
	if oid := OperationIDFromContext(ctx); oid != "" {
		builder = builder.Str("operation_id", oid)
		added = true
	}
	if vid := VehicleIDFromContext(ctx); vid != "" {
		builder = builder.Str("vehicle_id", vid)
		added = true
	}
	if rid := RequestIDFromContext(ctx); rid != "" {
		builder = builder.Str("request_id", rid)
		added = true
	}
	if !added {
		return logger
	}
	return builder.Logger()
}

// FromContext returns a logger enriched with correlation fields from ctx,
// falling back to the base logger when ctx carries none.
func FromContext(ctx context.Context) zerolog.Logger {
	return WithContext(ctx, Base())
}
