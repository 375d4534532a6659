// Package ratelimit paces HTTP requests against the Transparent
// Classroom portal so a sync run stays polite.
//
// The SlidingWindow limiter tracks request timestamps within a moving
// time window, which keeps the request rate smooth across a run that
// mixes listing pages with photo downloads.
//
// All limiters implement the Limiter interface:
//   - Allow() bool - check if a request is allowed
//   - Wait() - block until a request is allowed
//   - Reset() - reset the limiter state
//
// Usage:
//
//	// 60 requests per minute
//	limiter := ratelimit.NewSlidingWindow(60, time.Minute)
//
//	// Block until allowed
//	limiter.Wait()
//	// Proceed with request
package ratelimit
