// Package exchange runs an operator-driven byte exchange over a Unix domain
// stream socket.
//
// A listener claims the endpoint path (optionally guarded by a flock on
// <path>.lock), binds it with a single stale-file retry, accepts exactly one
// peer and plays the write-first role. A connector dials an existing endpoint
// and plays the read-first role. Each turn the operator types one line of hex;
// an empty line is sent as the one-byte skip marker 0xFF. Each receive reads
// at most four bytes and prints them as "Read N bytes: <hex>", except a lone
// 0xFF which is silently consumed.
//
// The claimed endpoint path is removed on every exit from the listening scope,
// including errors and signal-driven cancellation, but only if it still exists.
package exchange
