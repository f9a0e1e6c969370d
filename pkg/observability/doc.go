/*
Package observability provides lifecycle hooks for monitoring assessment runs.

Hooks record Prometheus metrics and structured log lines for every node
entered or left and every finished run. Combine them with domain.LifecycleHooks.Merge.
*/
package observability
