// Package logs reads the diagnostic log file written under logging.log_dir.
//
// Last returns the trailing lines with bounded memory and Follow polls for
// appended lines until its context is canceled. Both tolerate a missing file
// so `sockpoke logs` works before the first session has run.
package logs
