package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/metislabs/rag-be/database"
	"github.com/metislabs/rag-be/types"
)

// IngestService runs document ingestion in the background: uploads are
// saved, queued, and picked up by a worker pool. Callers poll Job for
// completion; the queue never blocks the upload request.
type IngestService struct {
	uploadDir string
	documents *DocumentService
	index     database.VectorIndex

	jobs chan string
	wg   sync.WaitGroup

	mu     sync.RWMutex
	status map[string]*types.IngestJob
}

func NewIngestService(uploadDir string, documents *DocumentService, index database.VectorIndex, queueSize int) (*IngestService, error) {
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	return &IngestService{
		uploadDir: uploadDir,
		documents: documents,
		index:     index,
		jobs:      make(chan string, queueSize),
		status:    make(map[string]*types.IngestJob),
	}, nil
}

// Start launches the worker pool. Workers exit when ctx is cancelled
// or Stop closes the queue.
func (s *IngestService) Start(ctx context.Context, workers int) {
	if workers <= 0 {
		workers = 2
	}
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx)
	}
	log.Printf("Started %d ingest workers", workers)
}

// Stop closes the queue and waits for in-flight jobs to finish.
func (s *IngestService) Stop() {
	close(s.jobs)
	s.wg.Wait()
}

func (s *IngestService) worker(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case jobID, ok := <-s.jobs:
			if !ok {
				return
			}
			s.run(ctx, jobID)
		}
	}
}

// SaveUpload copies an uploaded file into the upload directory under a
// timestamped, sanitized name and returns the stored path.
func (s *IngestService) SaveUpload(file *multipart.FileHeader) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(file.Filename))
	base := strings.TrimSuffix(filepath.Base(file.Filename), ext)
	filename := sanitizeFileName(fmt.Sprintf("%s_%d%s", base, time.Now().Unix(), ext))

	path := filepath.Join(s.uploadDir, filename)
	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}
	return path, nil
}

// Enqueue registers a pending ingest job for a stored file and hands
// it to the worker pool.
func (s *IngestService) Enqueue(path string) (*types.IngestJob, error) {
	job := &types.IngestJob{
		ID:       uuid.NewString(),
		FilePath: path,
		FileName: filepath.Base(path),
		Status:   types.JobStatusPending,
		QueuedAt: time.Now().Unix(),
	}

	s.mu.Lock()
	s.status[job.ID] = job
	s.mu.Unlock()

	select {
	case s.jobs <- job.ID:
	default:
		s.setJobResult(job.ID, types.JobStatusFailed, 0, "ingest queue full")
		return nil, fmt.Errorf("ingest queue full")
	}

	log.Printf("Queued ingest job %s for %s", job.ID, path)
	copied := *job
	return &copied, nil
}

// Job returns a snapshot of one job's status.
func (s *IngestService) Job(id string) (*types.IngestJob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.status[id]
	if !ok {
		return nil, false
	}
	copied := *job
	return &copied, true
}

func (s *IngestService) run(ctx context.Context, jobID string) {
	s.mu.Lock()
	job, ok := s.status[jobID]
	if !ok {
		s.mu.Unlock()
		return
	}
	job.Status = types.JobStatusProcessing
	path := job.FilePath
	s.mu.Unlock()

	chunks, err := s.documents.ProcessFile(path)
	if err != nil {
		log.Printf("Ingest job %s failed processing %s: %v", jobID, path, err)
		s.setJobResult(jobID, types.JobStatusFailed, 0, err.Error())
		return
	}
	if err := s.index.Add(ctx, chunks, database.DefaultBatchSize); err != nil {
		log.Printf("Ingest job %s failed indexing %s: %v", jobID, path, err)
		s.setJobResult(jobID, types.JobStatusFailed, 0, err.Error())
		return
	}

	log.Printf("Ingest job %s completed: %d chunks from %s", jobID, len(chunks), path)
	s.setJobResult(jobID, types.JobStatusCompleted, len(chunks), "")
}

func (s *IngestService) setJobResult(jobID, status string, chunks int, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.status[jobID]
	if !ok {
		return
	}
	job.Status = status
	job.Chunks = chunks
	job.Error = errMsg
	job.DoneAt = time.Now().Unix()
}

// UploadDir returns the directory uploads are stored in.
func (s *IngestService) UploadDir() string { return s.uploadDir }

// CountUploads reports how many files sit in the upload directory.
func (s *IngestService) CountUploads() int {
	entries, err := os.ReadDir(s.uploadDir)
	if err != nil {
		return 0
	}
	count := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			count++
		}
	}
	return count
}

// ClearUploads removes every stored upload.
func (s *IngestService) ClearUploads() error {
	entries, err := os.ReadDir(s.uploadDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(s.uploadDir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

func sanitizeFileName(name string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' || r == '.' {
			return r
		}
		return '_'
	}, name)
}
