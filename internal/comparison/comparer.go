package comparison

import (
	"context"

	"log/slog"

	"redink/internal/config"
	"redink/internal/diff"
	"redink/internal/logging"
	"redink/internal/queue"
	"redink/internal/services"
	"redink/internal/stage"
	"redink/internal/textutil"
)

// Comparer aligns page transcripts with the reference text and stores the
// per-page grading result.
type Comparer struct {
	store  *queue.Store
	cfg    *config.Config
	logger *slog.Logger
}

// New constructs the comparison stage handler.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Comparer {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String("component", "comparer"))
	}
	return &Comparer{store: store, cfg: cfg, logger: stageLogger}
}

// SetLogger installs the per-task logger the workflow manager provides.
func (c *Comparer) SetLogger(logger *slog.Logger) {
	if logger != nil {
		c.logger = logger
	}
}

func (c *Comparer) Prepare(ctx context.Context, task *queue.Task) error {
	logger := logging.WithContext(ctx, c.logger)
	task.ErrorMessage = ""
	logger.Info("starting comparison", logging.Int("total_images", task.TotalImages))
	return nil
}

func (c *Comparer) Execute(ctx context.Context, task *queue.Task) error {
	logger := logging.WithContext(ctx, c.logger)
	images, err := stage.TaskImages(c.store, task)
	if err != nil {
		return err
	}

	cleaned := textutil.CleanReferenceText(task.ReferenceText)
	refWords := diff.SplitWords(cleaned)
	if len(refWords) == 0 {
		return services.Wrap(
			services.ErrValidation, "comparison", "clean reference",
			"reference text is empty after cleaning; edit the task reference", nil)
	}
	if err := task.SetReferenceWords(refWords); err != nil {
		return services.Wrap(services.ErrTransient, "comparison", "encode reference words", "", err)
	}

	// Concatenate all page transcripts so the aligner sees the full
	// passage, then remember each page's slice of the word stream.
	type pageSpan struct {
		image *queue.Image
		words []queue.Word
		start int
		end   int
	}
	spans := make([]pageSpan, 0, len(images))
	var allWords []string
	for _, img := range images {
		words, wordsErr := img.Words()
		if wordsErr != nil {
			return services.Wrap(services.ErrTransient, "comparison", "decode page words", "", wordsErr)
		}
		start := len(allWords)
		for _, w := range words {
			allWords = append(allWords, w.Text)
		}
		spans = append(spans, pageSpan{image: img, words: words, start: start, end: len(allWords)})
	}

	allOps := diff.Compute(allWords, refWords)
	stats := diff.Tally(allOps)

	for _, span := range spans {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		ops := diff.SplitOpsForRange(allOps, span.start, span.end)
		imageOps := make([]queue.ImageOp, 0, len(ops))
		for _, op := range ops {
			imageOp := queue.ImageOp{Op: op}
			if op.OcrIndex != nil && *op.OcrIndex < len(span.words) {
				confidence := span.words[*op.OcrIndex].Confidence
				imageOp.OcrConfidence = &confidence
			}
			imageOps = append(imageOps, imageOp)
		}
		if err := span.image.SetDiffOps(imageOps); err != nil {
			return services.Wrap(services.ErrTransient, "comparison", "encode diff ops", "", err)
		}
		span.image.Status = queue.ImageDiffDone
		if err := c.store.UpdateImage(span.image); err != nil {
			return services.Wrap(services.ErrTransient, "comparison", "persist diff ops", "", err)
		}

		annotations := buildAutoAnnotations(span.image.ID, ops, span.words)
		if err := c.store.ReplaceAutoAnnotations(span.image.ID, annotations); err != nil {
			return services.Wrap(services.ErrTransient, "comparison", "replace auto annotations", "", err)
		}
	}

	logger.Info(
		"comparison finished",
		logging.Int("reference_words", len(refWords)),
		logging.Int("ocr_words", len(allWords)),
		logging.Int("correct", stats.Correct),
		logging.Int("wrong", stats.Wrong),
		logging.Int("missing", stats.Missing),
		logging.Int("extra", stats.Extra),
	)
	return nil
}

// HealthCheck verifies comparer prerequisites.
func (c *Comparer) HealthCheck(ctx context.Context) stage.Health {
	const name = "comparer"
	if c.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if c.store == nil {
		return stage.Unhealthy(name, "queue store unavailable")
	}
	return stage.Healthy(name)
}

// buildAutoAnnotations converts grading ops into drawable marks. Correct
// words get no mark. Missing words have no box of their own, so one is
// inferred from the neighbouring words on the page.
func buildAutoAnnotations(imageID int64, ops []diff.Op, words []queue.Word) []*queue.Annotation {
	var annotations []*queue.Annotation
	for i, op := range ops {
		if op.Type == diff.Correct {
			continue
		}
		ann := &queue.Annotation{
			ImageID:   imageID,
			ErrorType: op.Type,
			IsAuto:    true,
		}
		if op.OcrWord != nil {
			ann.OcrWord = *op.OcrWord
		}
		if op.ReferenceWord != nil {
			ann.ReferenceWord = *op.ReferenceWord
		}
		if op.OcrIndex != nil {
			idx := *op.OcrIndex
			ann.WordIndex = &idx
		}

		switch op.Type {
		case diff.Wrong:
			ann.Shape = queue.ShapeEllipse
			if box, ok := wordBox(words, op.OcrIndex); ok {
				ann.X1, ann.Y1, ann.X2, ann.Y2 = box[0], box[1], box[2], box[3]
			}
		case diff.Extra:
			ann.Shape = queue.ShapeUnderline
			if box, ok := wordBox(words, op.OcrIndex); ok {
				ann.X1, ann.Y1, ann.X2, ann.Y2 = box[0], box[1], box[2], box[3]
			}
		case diff.Missing:
			ann.Shape = queue.ShapeCaret
			box := inferMissingBox(neighbourBoxes(ops, i, words))
			ann.X1, ann.Y1, ann.X2, ann.Y2 = box[0], box[1], box[2], box[3]
		}
		annotations = append(annotations, ann)
	}
	return annotations
}

func wordBox(words []queue.Word, idx *int) ([4]float64, bool) {
	if idx == nil || *idx < 0 || *idx >= len(words) {
		return [4]float64{}, false
	}
	return words[*idx].BBox, true
}
