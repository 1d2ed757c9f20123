// Package postimport runs the processors that follow a raw import.
//
// Each resource goes through an ordered list of Processors. Their
// outcomes are folded into one Result that is stored exactly once per
// run. When a run ends in error and DropOnError is set, the resource's
// datastore table is dropped; the outcome of that drop is logged but never
// replaces the processing error.
//
// State machine per run:
//
//	PostImportRunning → PostImportDone   (no stage errored)
//	PostImportRunning → PostImportError  (a stage errored; optional drop)
//
// Processors never run in parallel within a run. Different resources may
// be processed concurrently through Queue and Workers.
package postimport
