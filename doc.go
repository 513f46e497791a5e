/*
Package shastarun orchestrates runs of the Shasta long-read assembler on
huge-page memory.

A run materializes shasta.conf from the installed defaults and the user's
overrides, creates a fresh timestamped run directory, launches the
assembler there and, after it exits, optionally saves the page memory to
disk and releases it. A termination signal at any point kills the
assembler's process group and always releases the page memory.

The building blocks live under pkg/:

  - conf: configuration materialization and staging
  - stage: run directory creation and checks
  - adapters/process: worker supervision
  - lifecycle: signal handling and page-memory teardown
  - pagemem: saving and releasing the huge-page mount
  - runner: the run sequence tying them together

The shastarun command in cmd/shastarun exposes them.
*/
package shastarun
