// Package notifications sends push notifications through ntfy for task
// completion, review requests, and errors. When no topic is configured a
// noop service is returned so callers never need nil checks. Repeated
// identical messages inside the dedup window are dropped to keep a noisy
// failure from flooding the topic.
package notifications
