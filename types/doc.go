// Package types defines shared types used across the runway engine:
// the structured error model with stable error codes that the workflow
// engine and the task router surface to callers.
package types
