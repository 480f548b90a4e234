package api

import (
	"context"
	"path/filepath"
	"sort"
	"sync"

	"hmmsynth/domain/core"
	"hmmsynth/domain/modeldef"
	"hmmsynth/domain/run"
	"hmmsynth/internal"
	"hmmsynth/internal/export"
)

// JobStatus is the lifecycle state of an export job
type JobStatus string

const (
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// Job is a snapshot of one background export
type Job struct {
	ID        string         `json:"id"`
	Status    JobStatus      `json:"status"`
	Format    string         `json:"format"`
	Dir       string         `json:"dir"`
	Done      int            `json:"done"`
	Total     int            `json:"total"`
	Manifest  *run.Manifest  `json:"manifest,omitempty"`
	Error     string         `json:"error,omitempty"`
	CreatedAt core.Timestamp `json:"created_at"`
}

// JobManager runs exports in the background, one directory per job under
// the output root.
type JobManager struct {
	service   *export.Service
	open      export.SinkFactory
	outputDir string
	hub       *SSEHub
	logger    *internal.Logger

	mu   sync.RWMutex
	jobs map[string]*Job

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewJobManager creates a job manager. Close cancels running jobs.
func NewJobManager(service *export.Service, open export.SinkFactory, outputDir string, hub *SSEHub, logger *internal.Logger) *JobManager {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &JobManager{
		service:   service,
		open:      open,
		outputDir: outputDir,
		hub:       hub,
		logger:    logger,
		jobs:      make(map[string]*Job),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start launches an export of spec and returns its initial snapshot.
func (m *JobManager) Start(spec modeldef.CollectionSpec, format string, opts export.Options) Job {
	id := core.NewID().String()
	job := &Job{
		ID:        id,
		Status:    JobRunning,
		Format:    format,
		Dir:       filepath.Join(m.outputDir, id),
		Total:     opts.Count,
		CreatedAt: core.Now(),
	}
	if job.Total <= 0 {
		job.Total = spec.DatasetSize
	}

	m.mu.Lock()
	m.jobs[id] = job
	snapshot := *job
	m.mu.Unlock()

	opts.Progress = progressBroadcaster{hub: m.hub, jobs: m, jobID: id}.report

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.logger.Info("export job %s started (%d records, %s)", id, snapshot.Total, format)
		manifest, err := m.service.ExportToDir(m.ctx, spec, snapshot.Dir, format, m.open, opts)
		if err != nil {
			m.logger.Error("export job %s failed: %v", id, err)
			m.update(id, func(j *Job) {
				j.Status = JobFailed
				j.Error = err.Error()
			})
			ev := newEvent(id, EventFailed, 0, snapshot.Total)
			ev.Error = err.Error()
			m.hub.Broadcast(ev)
			return
		}
		m.update(id, func(j *Job) {
			j.Status = JobDone
			j.Done = manifest.Records()
			j.Manifest = manifest
		})
		m.logger.Info("export job %s done in %v", id, manifest.Duration)
		m.hub.Broadcast(newEvent(id, EventDone, manifest.Records(), snapshot.Total))
	}()

	return snapshot
}

// Get returns a snapshot of job id
func (m *JobManager) Get(id string) (Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// List returns snapshots of every job, oldest first
func (m *JobManager) List() []Job {
	m.mu.RLock()
	out := make([]Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		out = append(out, *job)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Time().Before(out[j].CreatedAt.Time())
	})
	return out
}

// Wait blocks until every started job has finished.
func (m *JobManager) Wait() {
	m.wg.Wait()
}

// Close cancels running jobs and waits for them to stop.
func (m *JobManager) Close() {
	m.cancel()
	m.wg.Wait()
}

func (m *JobManager) update(id string, fn func(*Job)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job, ok := m.jobs[id]; ok {
		fn(job)
	}
}
