// Package workflow advances grading tasks through the configured
// processing stages.
//
// The Manager polls the queue, reclaims stale work via heartbeats, and
// feeds tasks into registered stage handlers (recognizer, comparer,
// annotator) while capturing failure metadata. It also aggregates queue
// stats, calls stage health checks, and emits queue-level notifications
// when processing starts or completes.
//
// The workflow runs two independent lanes: recognition (transcribing
// uploaded pages with the vision model) and grading (comparing the
// transcript against the reference text and rendering annotated pages).
// Each lane polls for tasks matching its statuses and processes them
// independently, so page recognition for task B can proceed while task A
// is being annotated.
//
// Add new lifecycle stages by extending StageSet, updating the queue
// status enums, and teaching the manager how to transition tasks; this
// package is the authoritative home for that coordination logic.
package workflow
