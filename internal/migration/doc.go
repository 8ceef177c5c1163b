// Package migration drives the one-shot credential import: it loads the
// export, then authenticates and submits every record in turn, collecting a
// per-record outcome into a run summary. Failures of individual records never
// stop the run.
package migration
