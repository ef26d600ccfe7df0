package workflow

import "redink/internal/queue"

// ConfigureStages registers the concrete stage handlers the workflow will run.
func (m *Manager) ConfigureStages(set StageSet) {
	recognition := &laneState{kind: laneRecognition, name: "recognition", notificationsEnabled: true}
	grading := &laneState{kind: laneGrading, name: "grading", notificationsEnabled: false}

	if set.Recognizer != nil {
		recognition.stages = append(recognition.stages, pipelineStage{
			name:             "recognizer",
			handler:          set.Recognizer,
			startStatus:      queue.StatusPending,
			processingStatus: queue.StatusTranscribing,
			doneStatus:       queue.StatusTranscribed,
		})
	}
	annotatorStart := queue.StatusTranscribed
	if set.Comparer != nil {
		grading.stages = append(grading.stages, pipelineStage{
			name:             "comparer",
			handler:          set.Comparer,
			startStatus:      queue.StatusTranscribed,
			processingStatus: queue.StatusComparing,
			doneStatus:       queue.StatusCompared,
		})
		annotatorStart = queue.StatusCompared
	}
	if set.Annotator != nil {
		grading.stages = append(grading.stages, pipelineStage{
			name:             "annotator",
			handler:          set.Annotator,
			startStatus:      annotatorStart,
			processingStatus: queue.StatusAnnotating,
			doneStatus:       queue.StatusCompleted,
		})
	}

	lanes := make(map[laneKind]*laneState)
	order := make([]laneKind, 0, 2)

	if len(recognition.stages) > 0 {
		recognition.finalize()
		lanes[recognition.kind] = recognition
		order = append(order, recognition.kind)
	}
	if len(grading.stages) > 0 {
		grading.finalize()
		lanes[grading.kind] = grading
		order = append(order, grading.kind)
	}

	// The reclaimer sweeps every processing status at once, so a single
	// lane runs it for the whole queue.
	if len(order) > 0 {
		lanes[order[0]].runReclaimer = true
	}

	m.mu.Lock()
	m.lanes = lanes
	m.laneOrder = order
	m.mu.Unlock()
}
