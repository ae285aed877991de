// Package core provides the business logic for record conversion jobs.
//
// This package sits between the conversion engine (extract, render,
// pipeline) and any transport layer. It can be used by web handlers, CLI
// tools, or tests without modification.
//
// # Architecture
//
// The package is organized around several key concepts:
//
//   - Service: the main entry point for all operations (convert, jobs,
//     history).
//   - Jobs: asynchronous conversions tracked by UUID, with progress
//     broadcast to subscribers and cancellation via context.
//   - Limiter: a semaphore that bounds concurrent conversions and supports
//     graceful drain on shutdown.
//   - History: completed conversions recorded in Postgres when a pool is
//     configured; the service runs fully without one.
//
// # Conversion Jobs
//
// A job converts one input stream to one output document in the background:
//
//  1. Client calls [Service.StartJob] with the input bytes and format keys.
//  2. The service acquires a limiter slot and runs the pipeline.
//  3. Progress is broadcast to subscribers via [Service.SubscribeProgress].
//  4. [Service.JobResult] blocks until the job finishes and returns the
//     output document.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - LAY001: layout inference failures (no canonical columns)
//   - CSV001-CSV002: delimited parsing failures
//   - FMT001-FMT002: unknown input/output formats
//   - FILE001-FILE003: file size, empty file, missing file
//   - JOB001-JOB004: cancelled, busy, expired, timed out
//   - RATE001: request throttling
package core
