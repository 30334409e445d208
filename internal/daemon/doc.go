// Package daemon ties the long-running process together: it enforces
// single-instance execution with a file lock and supervises the worker
// pool, scheduler, and HTTP server under one suture tree.
package daemon
