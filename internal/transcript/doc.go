// Package transcript persists exchange frames to SQLite so an operator can
// review what was sent and received after a session ends.
//
// Each session records through a Recorder bound to its session ID, role and
// endpoint. The schema is versioned the same way as other embedded stores:
// a mismatch is reported rather than migrated.
package transcript
