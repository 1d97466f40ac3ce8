// Package telemetry wraps OpenTelemetry SDK initialization, providing
// centralized TracerProvider and MeterProvider setup for runway. When
// telemetry is disabled, noop implementations are used and no external
// service is contacted.
package telemetry
