// Package vault reads notes from a published note vault.
//
// Two adapters implement driven.VaultSource: Quartz reads the
// contentIndex.json a Quartz site publishes, Local walks a directory of
// markdown files with YAML frontmatter. Watch re-runs a callback when a local
// vault changes on disk.
package vault
