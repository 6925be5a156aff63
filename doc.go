// Package vfsengine is a client-side, content-addressed virtual file system
// engine: a hierarchical, transactional store over a durable key-value
// backend, organized into named modules, with a middleware pipeline for
// content-derived metadata, a tag graph, spaced-repetition review cards, and
// a synchronous event bus.
//
// This root package is a thin, package-level convenience layer delegating
// to a process-wide singleton
// (facade.Default) so simple programs don't have to thread a *facade.VFS
// through every call. Anything beyond single-database, single-process use
// should construct its own facade.VFS via facade.New and call its methods
// directly instead of going through this package.
package vfsengine
