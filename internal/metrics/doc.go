// Package metrics provides Prometheus instrumentation for workflow
// execution and task routing. This package is internal and should not
// be imported by external projects.
//
// The Collector registers counter and histogram vectors through
// promauto under a caller-supplied namespace. All record methods are
// safe to call on a nil Collector, so instrumentation points do not
// need to branch on whether metrics are enabled.
package metrics
