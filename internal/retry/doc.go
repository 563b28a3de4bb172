// Package retry runs upstream calls under a bounded exponential backoff
// policy, with error classification deciding which failures are worth
// another attempt. An optional rate limiter gates every attempt, so
// soft-limit waits and hard quota stops happen before any network I/O.
package retry
