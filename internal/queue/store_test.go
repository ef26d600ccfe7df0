package queue

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"redink/internal/diff"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenPath(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func addTask(t *testing.T, store *Store, title string, status Status) *Task {
	t.Helper()
	task := &Task{
		Title:         title,
		ReferenceText: "the quick brown fox",
		Status:        status,
	}
	if err := store.Add(task); err != nil {
		t.Fatalf("adding task: %v", err)
	}
	return task
}

func TestAddAndFetchTask(t *testing.T) {
	store := newTestStore(t)

	task := &Task{
		Title:         "Week 3 dictation",
		ReferenceText: "she sells sea shells",
		OCRModel:      "qwen-vl-max",
	}
	if err := task.SetReferenceWords([]string{"she", "sells", "sea", "shells"}); err != nil {
		t.Fatalf("setting reference words: %v", err)
	}
	if err := store.Add(task); err != nil {
		t.Fatalf("adding task: %v", err)
	}
	if task.ID == 0 {
		t.Fatal("expected task id to be assigned")
	}
	if task.Status != StatusPending {
		t.Errorf("expected default status pending, got %s", task.Status)
	}

	fetched, err := store.ByID(task.ID)
	if err != nil {
		t.Fatalf("fetching task: %v", err)
	}
	if fetched.Title != "Week 3 dictation" {
		t.Errorf("title = %q", fetched.Title)
	}
	if fetched.OCRModel != "qwen-vl-max" {
		t.Errorf("ocr model = %q", fetched.OCRModel)
	}
	words, err := fetched.ReferenceWords()
	if err != nil {
		t.Fatalf("decoding reference words: %v", err)
	}
	if len(words) != 4 || words[0] != "she" {
		t.Errorf("reference words = %v", words)
	}
	if fetched.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}
}

func TestFetchMissingTask(t *testing.T) {
	store := newTestStore(t)

	_, err := store.ByID(999)
	if !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestUpdateTask(t *testing.T) {
	store := newTestStore(t)
	task := addTask(t, store, "essay", StatusPending)

	task.Status = StatusTranscribing
	task.TotalImages = 3
	if err := store.Update(task); err != nil {
		t.Fatalf("updating task: %v", err)
	}

	fetched, err := store.ByID(task.ID)
	if err != nil {
		t.Fatalf("fetching task: %v", err)
	}
	if fetched.Status != StatusTranscribing {
		t.Errorf("status = %s", fetched.Status)
	}
	if fetched.TotalImages != 3 {
		t.Errorf("total images = %d", fetched.TotalImages)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	store := newTestStore(t)
	addTask(t, store, "a", StatusPending)
	addTask(t, store, "b", StatusCompleted)
	addTask(t, store, "c", StatusPending)

	pending, err := store.List(StatusPending)
	if err != nil {
		t.Fatalf("listing pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending tasks, got %d", len(pending))
	}
	if pending[0].Title != "a" || pending[1].Title != "c" {
		t.Errorf("expected oldest-first order, got %s, %s", pending[0].Title, pending[1].Title)
	}

	all, err := store.List()
	if err != nil {
		t.Fatalf("listing all: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 tasks, got %d", len(all))
	}
}

func TestListPage(t *testing.T) {
	store := newTestStore(t)
	for _, title := range []string{"first", "second", "third"} {
		addTask(t, store, title, StatusPending)
	}

	page, total, err := store.ListPage(0, 2)
	if err != nil {
		t.Fatalf("listing page: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d", total)
	}
	if len(page) != 2 {
		t.Fatalf("page size = %d", len(page))
	}
	if page[0].Title != "third" {
		t.Errorf("expected newest first, got %q", page[0].Title)
	}
}

func TestNextForStatuses(t *testing.T) {
	store := newTestStore(t)

	next, err := store.NextForStatuses(StatusPending)
	if err != nil {
		t.Fatalf("fetching next: %v", err)
	}
	if next != nil {
		t.Fatal("expected nil when queue is empty")
	}

	addTask(t, store, "older", StatusPending)
	addTask(t, store, "newer", StatusPending)
	addTask(t, store, "done", StatusCompleted)

	next, err = store.NextForStatuses(StatusPending, StatusTranscribing)
	if err != nil {
		t.Fatalf("fetching next: %v", err)
	}
	if next == nil || next.Title != "older" {
		t.Errorf("expected oldest pending task, got %+v", next)
	}
}

func TestReclaimStaleProcessing(t *testing.T) {
	store := newTestStore(t)

	stale := addTask(t, store, "stale", StatusTranscribing)
	fresh := addTask(t, store, "fresh", StatusComparing)
	addTask(t, store, "waiting", StatusPending)

	old := time.Now().UTC().Add(-time.Hour)
	stale.LastHeartbeat = &old
	if err := store.Update(stale); err != nil {
		t.Fatalf("updating stale task: %v", err)
	}
	if err := store.UpdateHeartbeat(fresh.ID); err != nil {
		t.Fatalf("heartbeating fresh task: %v", err)
	}

	reclaimed, err := store.ReclaimStaleProcessing(time.Now().UTC().Add(-5 * time.Minute))
	if err != nil {
		t.Fatalf("reclaiming: %v", err)
	}
	if reclaimed != 1 {
		t.Errorf("expected 1 reclaimed task, got %d", reclaimed)
	}

	refetched, err := store.ByID(stale.ID)
	if err != nil {
		t.Fatalf("fetching reclaimed task: %v", err)
	}
	if refetched.Status != StatusPending {
		t.Errorf("reclaimed status = %s", refetched.Status)
	}
	if refetched.LastHeartbeat != nil {
		t.Error("expected heartbeat to be cleared")
	}

	stillFresh, err := store.ByID(fresh.ID)
	if err != nil {
		t.Fatalf("fetching fresh task: %v", err)
	}
	if stillFresh.Status != StatusComparing {
		t.Errorf("fresh task status = %s", stillFresh.Status)
	}
}

func TestRetryFailed(t *testing.T) {
	store := newTestStore(t)

	failed := addTask(t, store, "failed", StatusFailed)
	failed.ErrorMessage = "ocr timed out"
	if err := store.Update(failed); err != nil {
		t.Fatalf("updating failed task: %v", err)
	}
	review := addTask(t, store, "review", StatusReview)
	addTask(t, store, "done", StatusCompleted)

	count, err := store.RetryFailed()
	if err != nil {
		t.Fatalf("retrying: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 retried tasks, got %d", count)
	}

	for _, id := range []int64{failed.ID, review.ID} {
		task, err := store.ByID(id)
		if err != nil {
			t.Fatalf("fetching retried task: %v", err)
		}
		if task.Status != StatusPending {
			t.Errorf("task %d status = %s", id, task.Status)
		}
		if task.ErrorMessage != "" {
			t.Errorf("task %d error not cleared: %q", id, task.ErrorMessage)
		}
	}
}

func TestRetryFailedSpecificIDs(t *testing.T) {
	store := newTestStore(t)
	a := addTask(t, store, "a", StatusFailed)
	b := addTask(t, store, "b", StatusFailed)

	count, err := store.RetryFailed(a.ID)
	if err != nil {
		t.Fatalf("retrying: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 retried task, got %d", count)
	}

	untouched, err := store.ByID(b.ID)
	if err != nil {
		t.Fatalf("fetching task: %v", err)
	}
	if untouched.Status != StatusFailed {
		t.Errorf("task b status = %s", untouched.Status)
	}
}

func TestStats(t *testing.T) {
	store := newTestStore(t)
	addTask(t, store, "a", StatusPending)
	addTask(t, store, "b", StatusTranscribing)
	addTask(t, store, "c", StatusCompleted)
	addTask(t, store, "d", StatusCompleted)

	stats, err := store.Stats()
	if err != nil {
		t.Fatalf("fetching stats: %v", err)
	}
	if stats.Total != 4 {
		t.Errorf("total = %d", stats.Total)
	}
	if stats.ByStatus[StatusCompleted] != 2 {
		t.Errorf("completed = %d", stats.ByStatus[StatusCompleted])
	}
	if stats.Processing != 1 {
		t.Errorf("processing = %d", stats.Processing)
	}
}

func TestClearCompleted(t *testing.T) {
	store := newTestStore(t)
	addTask(t, store, "done", StatusCompleted)
	addTask(t, store, "waiting", StatusPending)

	removed, err := store.ClearCompleted()
	if err != nil {
		t.Fatalf("clearing: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d", removed)
	}

	remaining, err := store.List()
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	if len(remaining) != 1 || remaining[0].Title != "waiting" {
		t.Errorf("unexpected remaining tasks: %+v", remaining)
	}
}

func TestImageLifecycle(t *testing.T) {
	store := newTestStore(t)
	task := addTask(t, store, "homework", StatusPending)

	first := &Image{TaskID: task.ID, OriginalFilename: "page1.jpg", Path: "/tmp/page1.jpg"}
	second := &Image{TaskID: task.ID, OriginalFilename: "page2.jpg", Path: "/tmp/page2.jpg"}
	for _, img := range []*Image{first, second} {
		if err := store.AddImage(img); err != nil {
			t.Fatalf("adding image: %v", err)
		}
	}
	if first.SortOrder != 1 || second.SortOrder != 2 {
		t.Errorf("sort orders = %d, %d", first.SortOrder, second.SortOrder)
	}

	first.Status = ImageOCRDone
	first.OCRRawText = "the quick brown"
	if err := first.SetWords([]Word{
		{Text: "the", BBox: [4]float64{10, 20, 60, 50}, Confidence: 0.95},
		{Text: "quick", BBox: [4]float64{70, 20, 140, 50}, Confidence: 0.9},
	}); err != nil {
		t.Fatalf("setting words: %v", err)
	}
	if err := store.UpdateImage(first); err != nil {
		t.Fatalf("updating image: %v", err)
	}

	fetched, err := store.ImageByID(first.ID)
	if err != nil {
		t.Fatalf("fetching image: %v", err)
	}
	words, err := fetched.Words()
	if err != nil {
		t.Fatalf("decoding words: %v", err)
	}
	if len(words) != 2 || words[1].Text != "quick" {
		t.Errorf("words = %+v", words)
	}

	images, err := store.ImagesForTask(task.ID)
	if err != nil {
		t.Fatalf("listing images: %v", err)
	}
	if len(images) != 2 || images[0].ID != first.ID {
		t.Errorf("unexpected image order: %+v", images)
	}
}

func TestRemoveImageRenumbers(t *testing.T) {
	store := newTestStore(t)
	task := addTask(t, store, "homework", StatusPending)

	var ids []int64
	for _, name := range []string{"a.jpg", "b.jpg", "c.jpg"} {
		img := &Image{TaskID: task.ID, OriginalFilename: name, Path: "/tmp/" + name}
		if err := store.AddImage(img); err != nil {
			t.Fatalf("adding image: %v", err)
		}
		ids = append(ids, img.ID)
	}

	if err := store.RemoveImage(ids[0]); err != nil {
		t.Fatalf("removing image: %v", err)
	}

	images, err := store.ImagesForTask(task.ID)
	if err != nil {
		t.Fatalf("listing images: %v", err)
	}
	if len(images) != 2 {
		t.Fatalf("expected 2 images, got %d", len(images))
	}
	if images[0].SortOrder != 1 || images[1].SortOrder != 2 {
		t.Errorf("sort orders after removal = %d, %d", images[0].SortOrder, images[1].SortOrder)
	}
}

func TestReorderImages(t *testing.T) {
	store := newTestStore(t)
	task := addTask(t, store, "homework", StatusPending)

	var ids []int64
	for _, name := range []string{"a.jpg", "b.jpg", "c.jpg"} {
		img := &Image{TaskID: task.ID, OriginalFilename: name, Path: "/tmp/" + name}
		if err := store.AddImage(img); err != nil {
			t.Fatalf("adding image: %v", err)
		}
		ids = append(ids, img.ID)
	}

	if err := store.ReorderImages(task.ID, []int64{ids[2], ids[0], ids[1]}); err != nil {
		t.Fatalf("reordering: %v", err)
	}

	images, err := store.ImagesForTask(task.ID)
	if err != nil {
		t.Fatalf("listing images: %v", err)
	}
	if images[0].OriginalFilename != "c.jpg" || images[2].OriginalFilename != "b.jpg" {
		t.Errorf("unexpected order: %s, %s, %s",
			images[0].OriginalFilename, images[1].OriginalFilename, images[2].OriginalFilename)
	}
}

func TestReorderImagesRejectsWrongIDSet(t *testing.T) {
	store := newTestStore(t)
	task := addTask(t, store, "homework", StatusPending)

	img := &Image{TaskID: task.ID, OriginalFilename: "a.jpg", Path: "/tmp/a.jpg"}
	if err := store.AddImage(img); err != nil {
		t.Fatalf("adding image: %v", err)
	}

	if err := store.ReorderImages(task.ID, []int64{img.ID, 999}); err == nil {
		t.Error("expected error for extra id")
	}
	if err := store.ReorderImages(task.ID, []int64{999}); err == nil {
		t.Error("expected error for unknown id")
	}
}

func TestRemoveTaskCascades(t *testing.T) {
	store := newTestStore(t)
	task := addTask(t, store, "homework", StatusPending)

	img := &Image{TaskID: task.ID, OriginalFilename: "a.jpg", Path: "/tmp/a.jpg"}
	if err := store.AddImage(img); err != nil {
		t.Fatalf("adding image: %v", err)
	}
	ann := &Annotation{
		ImageID: img.ID, ErrorType: diff.Wrong, Shape: ShapeEllipse,
		X1: 10, Y1: 10, X2: 50, Y2: 30, IsAuto: true,
	}
	if err := store.AddAnnotation(ann); err != nil {
		t.Fatalf("adding annotation: %v", err)
	}

	if err := store.Remove(task.ID); err != nil {
		t.Fatalf("removing task: %v", err)
	}

	if _, err := store.ImageByID(img.ID); !errors.Is(err, ErrImageNotFound) {
		t.Errorf("expected cascade delete of image, got %v", err)
	}
	if _, err := store.AnnotationByID(ann.ID); !errors.Is(err, ErrAnnotationNotFound) {
		t.Errorf("expected cascade delete of annotation, got %v", err)
	}
}

func TestReplaceAutoAnnotationsKeepsUserEdits(t *testing.T) {
	store := newTestStore(t)
	task := addTask(t, store, "homework", StatusPending)
	img := &Image{TaskID: task.ID, OriginalFilename: "a.jpg", Path: "/tmp/a.jpg"}
	if err := store.AddImage(img); err != nil {
		t.Fatalf("adding image: %v", err)
	}

	auto := &Annotation{
		ImageID: img.ID, ErrorType: diff.Extra, Shape: ShapeUnderline,
		X1: 5, Y1: 5, X2: 40, Y2: 25, IsAuto: true,
	}
	edited := &Annotation{
		ImageID: img.ID, ErrorType: diff.Wrong, Shape: ShapeEllipse,
		X1: 50, Y1: 5, X2: 90, Y2: 25, IsAuto: true, IsUserCorrected: true,
	}
	for _, a := range []*Annotation{auto, edited} {
		if err := store.AddAnnotation(a); err != nil {
			t.Fatalf("adding annotation: %v", err)
		}
	}

	idx := 2
	replacement := &Annotation{
		WordIndex: &idx, ErrorType: diff.Missing, Shape: ShapeCaret,
		ReferenceWord: "fox", X1: 100, Y1: 5, X2: 130, Y2: 25,
	}
	if err := store.ReplaceAutoAnnotations(img.ID, []*Annotation{replacement}); err != nil {
		t.Fatalf("replacing annotations: %v", err)
	}

	annotations, err := store.AnnotationsForImage(img.ID)
	if err != nil {
		t.Fatalf("listing annotations: %v", err)
	}
	if len(annotations) != 2 {
		t.Fatalf("expected 2 annotations, got %d", len(annotations))
	}
	if annotations[0].ID != edited.ID {
		t.Errorf("expected user-corrected annotation to survive, got id %d", annotations[0].ID)
	}
	if annotations[1].ErrorType != diff.Missing || annotations[1].ReferenceWord != "fox" {
		t.Errorf("unexpected replacement: %+v", annotations[1])
	}
	if annotations[1].WordIndex == nil || *annotations[1].WordIndex != 2 {
		t.Errorf("word index = %v", annotations[1].WordIndex)
	}
}

func TestCheckHealth(t *testing.T) {
	store := newTestStore(t)
	addTask(t, store, "a", StatusPending)

	health := store.CheckHealth(context.Background())
	if !health.Healthy {
		t.Fatalf("expected healthy database: %s", health.Error)
	}
	if health.TaskCount != 1 {
		t.Errorf("task count = %d", health.TaskCount)
	}
	if health.SchemaVersion != schemaVersion {
		t.Errorf("schema version = %d", health.SchemaVersion)
	}
}

func TestSchemaVersionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	store, err := OpenPath(path)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	if _, err := store.db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("forcing version: %v", err)
	}
	store.Close()

	_, err = OpenPath(path)
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Errorf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestParseStatus(t *testing.T) {
	if _, err := ParseStatus("pending"); err != nil {
		t.Errorf("pending should parse: %v", err)
	}
	if _, err := ParseStatus("bogus"); err == nil {
		t.Error("bogus should not parse")
	}
	if _, err := ParseImageStatus("ocr_done"); err != nil {
		t.Errorf("ocr_done should parse: %v", err)
	}
}

func TestLaneForStatus(t *testing.T) {
	cases := []struct {
		status Status
		lane   ProcessingLane
	}{
		{StatusPending, LaneRecognition},
		{StatusTranscribing, LaneRecognition},
		{StatusTranscribed, LaneGrading},
		{StatusCompared, LaneGrading},
		{StatusCompleted, ""},
		{StatusFailed, ""},
	}
	for _, tc := range cases {
		if got := LaneForStatus(tc.status); got != tc.lane {
			t.Errorf("LaneForStatus(%s) = %q, want %q", tc.status, got, tc.lane)
		}
	}
}
