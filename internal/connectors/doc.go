// Package connectors holds the source adapters. Each subpackage talks to one
// external source and hands the core plain domain items:
//
//   - reader: read-it-later documents and their HTML bodies
//   - readwise: the highlight export and the book list
//   - vault: published vault indexes and local markdown directories
//   - goodreads: library CSV exports
//
// apiclient is the shared HTTP client the hosted sources use.
package connectors
