package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metislabs/rag-be/types"
)

// recordingIndex counts chunks written to it.
type recordingIndex struct {
	mu     sync.Mutex
	added  int
	addErr error
}

func (r *recordingIndex) Add(_ context.Context, chunks []types.Chunk, _ int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.addErr != nil {
		return r.addErr
	}
	r.added += len(chunks)
	return nil
}

func (r *recordingIndex) Search(context.Context, string, int, map[string]any) ([]types.Chunk, error) {
	return nil, nil
}
func (r *recordingIndex) Stats(context.Context) (*types.IndexStats, error) { return &types.IndexStats{}, nil }
func (r *recordingIndex) Clear(context.Context) error                      { return nil }
func (r *recordingIndex) ListDocuments(context.Context) ([]types.DocumentInfo, error) {
	return nil, nil
}
func (r *recordingIndex) Close() error { return nil }

func (r *recordingIndex) addedChunks() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.added
}

func newTestIngestService(t *testing.T, index *recordingIndex) *IngestService {
	t.Helper()
	documents := NewDocumentService(DefaultDocumentServiceConfig)
	svc, err := NewIngestService(t.TempDir(), documents, index, 8)
	require.NoError(t, err)
	return svc
}

func waitForJob(t *testing.T, svc *IngestService, id string) *types.IngestJob {
	t.Helper()
	var job *types.IngestJob
	require.Eventually(t, func() bool {
		got, ok := svc.Job(id)
		if !ok {
			return false
		}
		if got.Status == types.JobStatusCompleted || got.Status == types.JobStatusFailed {
			job = got
			return true
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)
	return job
}

func TestIngestJobCompletes(t *testing.T) {
	index := &recordingIndex{}
	svc := newTestIngestService(t, index)
	path := writeTestFile(t, svc.UploadDir(), "report.txt", strings.Repeat("quarterly results look good. ", 30))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx, 1)
	defer svc.Stop()

	job, err := svc.Enqueue(path)
	require.NoError(t, err)
	assert.Equal(t, "report.txt", job.FileName)

	done := waitForJob(t, svc, job.ID)
	assert.Equal(t, types.JobStatusCompleted, done.Status)
	assert.Greater(t, done.Chunks, 0)
	assert.Empty(t, done.Error)
	assert.Equal(t, done.Chunks, index.addedChunks())
}

func TestIngestJobFailsOnBadFile(t *testing.T) {
	index := &recordingIndex{}
	svc := newTestIngestService(t, index)
	path := writeTestFile(t, svc.UploadDir(), "broken.pdf", "not a pdf")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx, 1)
	defer svc.Stop()

	job, err := svc.Enqueue(path)
	require.NoError(t, err)

	done := waitForJob(t, svc, job.ID)
	assert.Equal(t, types.JobStatusFailed, done.Status)
	assert.NotEmpty(t, done.Error)
	assert.Equal(t, 0, index.addedChunks())
}

func TestIngestJobFailsOnIndexError(t *testing.T) {
	index := &recordingIndex{addErr: fmt.Errorf("index unavailable")}
	svc := newTestIngestService(t, index)
	path := writeTestFile(t, svc.UploadDir(), "doc.txt", "some text to ingest")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx, 1)
	defer svc.Stop()

	job, err := svc.Enqueue(path)
	require.NoError(t, err)

	done := waitForJob(t, svc, job.ID)
	assert.Equal(t, types.JobStatusFailed, done.Status)
	assert.Contains(t, done.Error, "index unavailable")
}

func TestIngestQueueFull(t *testing.T) {
	index := &recordingIndex{}
	documents := NewDocumentService(DefaultDocumentServiceConfig)
	svc, err := NewIngestService(t.TempDir(), documents, index, 1)
	require.NoError(t, err)
	// No workers started: the queue fills immediately.

	path := writeTestFile(t, svc.UploadDir(), "a.txt", "content")
	_, err = svc.Enqueue(path)
	require.NoError(t, err)

	_, err = svc.Enqueue(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "queue full")
}

func TestIngestJobUnknownID(t *testing.T) {
	svc := newTestIngestService(t, &recordingIndex{})
	_, ok := svc.Job("no-such-job")
	assert.False(t, ok)
}

func TestIngestUploadCountsAndClear(t *testing.T) {
	svc := newTestIngestService(t, &recordingIndex{})
	writeTestFile(t, svc.UploadDir(), "one.txt", "a")
	writeTestFile(t, svc.UploadDir(), "two.txt", "b")

	assert.Equal(t, 2, svc.CountUploads())
	require.NoError(t, svc.ClearUploads())
	assert.Equal(t, 0, svc.CountUploads())
}

func TestSanitizeFileName(t *testing.T) {
	assert.Equal(t, "my_report_2026.txt", sanitizeFileName("my report 2026.txt"))
	assert.Equal(t, "a-b_c.1.pdf", sanitizeFileName("a-b_c.1.pdf"))
	assert.Equal(t, "___.txt", sanitizeFileName("日本語.txt"))
}
