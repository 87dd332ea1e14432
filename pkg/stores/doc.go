// Package stores persists rtxctl history in SQLite: one row per engine
// operation (runs) and full-text configuration snapshots taken by backups
// and config pushes. The schema is managed with embedded migrations.
package stores
