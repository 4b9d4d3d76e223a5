// Package file provides file-based implementations of driven port interfaces.
//
// ConfigStore keeps shelfsync settings in ~/.shelfsync/config.toml.
package file
