/*
Package ports defines the driven ports (interfaces) for the arbor engine.

These interfaces decouple the navigation core from storage and transports,
allowing runs to be cached in memory, on disk, in Redis or in SQLite and to
be driven from a terminal, HTTP or MCP.

# Key Interfaces

  - DefinitionLoader: Retrieves raw assessment definitions (e.g., from a directory or Loam).
  - EntryStore: Persists opaque cache entries with an expiry.
  - ResultCache: Stores and loads partial assessment results for resuming runs.
  - DistributedLocker: Serializes writes to one run across replicas.
  - RunService: The operations transports expose to participants.
*/
package ports
