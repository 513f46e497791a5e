// Package process supervises the single worker child of a run.
package process
