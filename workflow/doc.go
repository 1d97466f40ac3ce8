/*
Package workflow implements the runway workflow orchestration engine: a
DAG-based multi-agent task orchestrator with dependency resolution, bounded
parallel execution, per-task retry with exponential backoff, and
Saga-pattern compensation on failure.

# Overview

A Workflow is an aggregate of Tasks plus a dependency graph. Each Task is
bound to a named capability of a registered Agent and carries its own
retry, timeout, and compensation policy. At creation time the engine
computes a topological order of the task graph (Kahn's algorithm) and
rejects cyclic graphs. At execution time a single scheduler goroutine owns
all mutable workflow state: it computes the ready frontier, launches tasks
up to the parallelism cap, and reaps terminal task states from a
completion channel.

# Core types

  - Engine: the public facade. Register agents and templates, create and
    execute workflows, query status, subscribe to events.
  - Workflow / Task: the data model with lifecycle state machines.
  - Agent / CapabilityFunc: the contract every external collaborator
    implements. The engine performs no schema validation on capability
    inputs or outputs.
  - Event: append-only per-workflow event log, fanned out to subscribers.

# Failure semantics

A task that exhausts its retries is recorded as FAILED. Unless the task
allows failure or the workflow continues on failure, the scheduler stops
launching new tasks, waits for in-flight tasks to finish, and the engine
rolls back completed tasks in reverse topological order by invoking their
compensation capabilities. Compensation is best-effort: a failing
compensation is logged and collected but never aborts the sweep.
*/
package workflow
