/*
Package router routes task requests to the most suitable registered agent
using confidence-based selection.

A Router resolves each request through a fixed strategy chain: a routing
cache keyed by task type and priority, exact matching against a static
task-type-to-agent-type table, fuzzy matching of the task description
against per-type keyword sets, and finally a low-confidence fallback to a
general-purpose agent. Every decision carries a confidence score in
[0, 1] and the name of the strategy that produced it.

Agent definitions come from a ConfigStore; the YAML file implementation
reloads lazily and caches parsed configs in memory. The routing cache is
pluggable, with an in-process implementation and a Redis-backed one for
deployments where multiple routers share decisions.
*/
package router
