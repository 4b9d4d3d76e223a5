// Package reader adapts the read-it-later service's v3 list API to
// driven.ReaderSource.
//
// Documents are listed without their HTML. FetchContent asks for a single
// document with its HTML, sanitises it and converts it to markdown.
package reader
