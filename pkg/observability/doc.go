/*
Package observability records run metrics.

A Recorder owns a private Prometheus registry. At the end of a run its contents
are written as a node-exporter textfile (metrics.prom) next to the run's
configuration, so a collector can pick them up after the process has exited.
*/
package observability
