package trace

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// OTLPExporter exports session traces to an OTLP endpoint.
type OTLPExporter struct {
	provider *sdktrace.TracerProvider
	tracer   oteltrace.Tracer
}

// NewOTLPExporter creates an exporter when OTEL_EXPORTER_OTLP_ENDPOINT is set.
// It returns nil, nil when tracing is not configured.
func NewOTLPExporter(ctx context.Context) (*OTLPExporter, error) {
	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if endpoint == "" {
		return nil, nil
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}

	serviceName := os.Getenv("OTEL_SERVICE_NAME")
	if serviceName == "" {
		serviceName = "osreport"
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(serviceName),
	)

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	return &OTLPExporter{
		provider: provider,
		tracer:   provider.Tracer("osreport/refresh"),
	}, nil
}

// ExportTrace exports a completed trace.
func (e *OTLPExporter) ExportTrace(ctx context.Context, t *Trace) error {
	if e == nil || t == nil || t.RootSpan == nil {
		return nil
	}

	traceID, err := hexToTraceID(t.ID)
	if err != nil {
		return err
	}
	traceCtx := oteltrace.ContextWithSpanContext(ctx, oteltrace.NewSpanContext(oteltrace.SpanContextConfig{
		TraceID:    traceID,
		TraceFlags: oteltrace.FlagsSampled,
	}))

	e.exportSpan(traceCtx, t.RootSpan, oteltrace.SpanContext{})
	return nil
}

// exportSpan exports span and its children. The SDK assigns new span ids;
// trace id, nesting and timing are kept.
func (e *OTLPExporter) exportSpan(ctx context.Context, span *Span, parent oteltrace.SpanContext) {
	parentCtx := ctx
	if parent.IsValid() {
		parentCtx = oteltrace.ContextWithSpanContext(ctx, parent)
	}

	_, otlpSpan := e.tracer.Start(parentCtx, span.Name, oteltrace.WithTimestamp(span.StartTime))
	otlpSpan.SetAttributes(attributesFor(span.Attributes)...)
	otlpSpan.End(oteltrace.WithTimestamp(span.StartTime.Add(span.Duration)))

	current := otlpSpan.SpanContext()
	for _, child := range span.Children {
		e.exportSpan(ctx, child, current)
	}
}

// attributesFor maps span attributes into the osreport.* namespace.
func attributesFor(in map[string]string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(in))
	for k, v := range in {
		var key string
		switch k {
		case AttrSession:
			key = "osreport.session.id"
		case AttrProject:
			key = "osreport.project.name"
		case AttrResourceType:
			key = "osreport.resource.type"
		case AttrCount:
			key = "osreport.resource.count"
		case AttrOutcome:
			key = "osreport.outcome"
		default:
			key = "osreport." + k
		}
		attrs = append(attrs, attribute.String(key, v))
	}
	return attrs
}

func hexToTraceID(s string) (oteltrace.TraceID, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return oteltrace.TraceID{}, fmt.Errorf("trace id %q: %w", s, err)
	}
	if len(b) != 16 {
		return oteltrace.TraceID{}, fmt.Errorf("trace id %q: want 16 bytes, got %d", s, len(b))
	}
	var id oteltrace.TraceID
	copy(id[:], b)
	return id, nil
}

// Shutdown flushes and closes the exporter.
func (e *OTLPExporter) Shutdown(ctx context.Context) error {
	if e == nil {
		return nil
	}
	return e.provider.Shutdown(ctx)
}
