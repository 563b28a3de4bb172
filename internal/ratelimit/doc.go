// Package ratelimit enforces the upstream provider's dual quota: a soft
// per-second cap resolved by waiting, and a hard long-window quota that
// fails requests outright until the window rolls over.
//
// Reservation and consumption are split: CheckAndReserve is a dry check
// and Commit records usage, so only successful upstream responses spend
// quota. The limiter is an injectable value, not module state, so tests
// construct independent instances with synthetic clocks.
package ratelimit
