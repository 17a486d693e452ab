// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// OTLPConfig holds OTLP log exporter configuration
type OTLPConfig struct {
	Endpoint    string // OTLP HTTP endpoint (default: localhost:4318)
	ServiceName string
	Insecure    bool // Use HTTP instead of HTTPS
}

// OTLPHook mirrors logrus entries as OpenTelemetry log records.
type OTLPHook struct {
	provider *sdklog.LoggerProvider
	logger   log.Logger
}

// NewOTLPHook creates a hook exporting over OTLP/HTTP with a batch processor.
func NewOTLPHook(ctx context.Context, cfg OTLPConfig) (*OTLPHook, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4318"
	}
	opts := []otlploghttp.Option{
		otlploghttp.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlploghttp.WithInsecure())
	}
	exporter, err := otlploghttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}
	return newOTLPHook(sdklog.NewBatchProcessor(exporter), cfg.ServiceName), nil
}

func newOTLPHook(processor sdklog.Processor, serviceName string) *OTLPHook {
	var attrs []attribute.KeyValue
	if serviceName != "" {
		attrs = append(attrs, semconv.ServiceName(serviceName))
	}
	provider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(processor),
		sdklog.WithResource(resource.NewWithAttributes(semconv.SchemaURL, attrs...)),
	)
	return &OTLPHook{provider: provider, logger: provider.Logger("zag")}
}

// Levels implements logrus.Hook
func (h *OTLPHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire implements logrus.Hook
func (h *OTLPHook) Fire(entry *logrus.Entry) error {
	var record log.Record
	record.SetTimestamp(entry.Time)
	record.SetObservedTimestamp(time.Now())
	record.SetSeverity(levelToSeverity(entry.Level))
	record.SetSeverityText(strings.ToUpper(entry.Level.String()))
	record.SetBody(log.StringValue(entry.Message))

	for k, v := range entry.Data {
		record.AddAttributes(toKeyValue(k, v))
	}

	ctx := entry.Context
	if ctx == nil {
		ctx = context.Background()
	}
	h.logger.Emit(ctx, record)
	return nil
}

// Close flushes and shuts down the exporter
func (h *OTLPHook) Close(ctx context.Context) error {
	return h.provider.Shutdown(ctx)
}

func toKeyValue(k string, v interface{}) log.KeyValue {
	switch val := v.(type) {
	case string:
		return log.String(k, val)
	case float64:
		return log.Float64(k, val)
	case bool:
		return log.Bool(k, val)
	case int:
		return log.Int(k, val)
	case int64:
		return log.Int64(k, val)
	case error:
		return log.String(k, val.Error())
	case fmt.Stringer:
		return log.String(k, val.String())
	default:
		return log.String(k, fmt.Sprint(val))
	}
}

// levelToSeverity converts a logrus level to OTel severity
func levelToSeverity(level logrus.Level) log.Severity {
	switch level {
	case logrus.TraceLevel:
		return log.SeverityTrace
	case logrus.DebugLevel:
		return log.SeverityDebug
	case logrus.InfoLevel:
		return log.SeverityInfo
	case logrus.WarnLevel:
		return log.SeverityWarn
	case logrus.ErrorLevel:
		return log.SeverityError
	case logrus.FatalLevel, logrus.PanicLevel:
		return log.SeverityFatal
	default:
		return log.SeverityInfo
	}
}
