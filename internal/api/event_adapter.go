package api

import "time"

// progressBroadcaster adapts export progress callbacks to hub events and
// mirrors them into the job table.
type progressBroadcaster struct {
	hub   *SSEHub
	jobs  *JobManager
	jobID string
}

func (p progressBroadcaster) report(done, total int) {
	p.jobs.update(p.jobID, func(j *Job) {
		j.Done = done
		j.Total = total
	})
	p.hub.Broadcast(newEvent(p.jobID, EventProgress, done, total))
}

func newEvent(jobID, eventType string, done, total int) ExportEvent {
	ev := ExportEvent{
		JobID:     jobID,
		EventType: eventType,
		Done:      done,
		Total:     total,
		Timestamp: time.Now(),
	}
	if total > 0 {
		ev.Progress = float64(done) / float64(total)
	}
	return ev
}
