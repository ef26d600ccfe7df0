package main

import (
	"sort"
	"strconv"

	"redink/internal/queue"
)

// statusDisplayOrder lists task statuses in lifecycle order for stable
// queue summaries.
var statusDisplayOrder = []string{
	string(queue.StatusEditing),
	string(queue.StatusPending),
	string(queue.StatusTranscribing),
	string(queue.StatusTranscribed),
	string(queue.StatusComparing),
	string(queue.StatusCompared),
	string(queue.StatusAnnotating),
	string(queue.StatusCompleted),
	string(queue.StatusReview),
	string(queue.StatusFailed),
}

func buildQueueStatusRows(stats map[string]int) [][]string {
	if len(stats) == 0 {
		return nil
	}

	rows := make([][]string, 0, len(stats))
	seen := make(map[string]bool, len(stats))
	for _, status := range statusDisplayOrder {
		if count, ok := stats[status]; ok && count > 0 {
			rows = append(rows, []string{status, strconv.Itoa(count)})
			seen[status] = true
		}
	}

	extras := make([]string, 0)
	for status, count := range stats {
		if !seen[status] && count > 0 {
			extras = append(extras, status)
		}
	}
	sort.Strings(extras)
	for _, status := range extras {
		rows = append(rows, []string{status, strconv.Itoa(stats[status])})
	}
	return rows
}
