// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// SimilarityService runs the duplicate check state machine, DocumentService
// owns ingest and the soft-delete lifecycle, and SettingsService maps the
// config store onto domain.AppSettings. Adapters are injected; nothing here
// touches the filesystem or network directly.
package services
