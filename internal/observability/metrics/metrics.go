package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	quotationsCreated metric.Int64Counter
	statusChanges     metric.Int64Counter
	numberConflicts   metric.Int64Counter
	pdfRenders        metric.Int64Counter
	emailsSent        metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "quotar"
	}
	meter := provider.Meter(name)

	quotationsCreated, err := meter.Int64Counter("quotar_quotations_created_total")
	if err != nil {
		return nil, err
	}
	statusChanges, err := meter.Int64Counter("quotar_quotation_status_changes_total")
	if err != nil {
		return nil, err
	}
	numberConflicts, err := meter.Int64Counter("quotar_number_conflicts_total")
	if err != nil {
		return nil, err
	}
	pdfRenders, err := meter.Int64Counter("quotar_pdf_renders_total")
	if err != nil {
		return nil, err
	}
	emailsSent, err := meter.Int64Counter("quotar_emails_sent_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		quotationsCreated: quotationsCreated,
		statusChanges:     statusChanges,
		numberConflicts:   numberConflicts,
		pdfRenders:        pdfRenders,
		emailsSent:        emailsSent,
	}, nil
}

// RecordQuotationCreated increments created quotation counts.
func (m *Metrics) RecordQuotationCreated(ctx context.Context, status string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("status", strings.TrimSpace(status)))
	m.quotationsCreated.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordStatusChange increments status transition counts.
func (m *Metrics) RecordStatusChange(ctx context.Context, status string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("status", strings.TrimSpace(status)))
	m.statusChanges.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordNumberConflict increments document number collision counts.
func (m *Metrics) RecordNumberConflict(ctx context.Context) {
	if m == nil {
		return
	}
	m.numberConflicts.Add(ctx, 1)
}

// RecordPDFRender increments rendered document counts.
func (m *Metrics) RecordPDFRender(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.pdfRenders.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordEmailSent increments delivered email counts.
func (m *Metrics) RecordEmailSent(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.emailsSent.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"status":      {},
	"outcome":     {},
	"endpoint":    {},
	"status_code": {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
