/*
Package ports defines the driven ports (interfaces) for the run orchestrator.

These interfaces decouple the run sequence from the filesystem, the page-memory
mount and the storage backends, so each can be swapped or faked in tests.

# Key Interfaces

  - Preparer: verifies and scaffolds the run directory before launch.
  - Persister: copies the page-memory contents to durable storage.
  - Cleaner: tears the page memory down.
  - RunLedger: records runs for operators (file or Redis).
  - DistributedLocker: serializes runs sharing one page-memory mount.
*/
package ports
