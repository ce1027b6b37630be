package download

import (
	"context"
	"sync"

	"github.com/btraven00/geofetch/pkg/models"
)

// Job is one publication's download work item, submitted to a Pool.
type Job struct {
	GeoID      string
	Relation   models.Relation
	Publication *models.Publication
	Candidates *models.CandidateURLs
}

// Pool runs Engine.Download across jobs with bounded concurrency, the
// same fixed-worker-count shape as an earlier internal/extractor.WorkerPool,
// generalized from PDF-extraction tasks to publication downloads.
type Pool struct {
	engine  *Engine
	workers int
}

// NewPool builds a download pool with numWorkers concurrent downloads,
// defaulting to 4 (matching the prior WorkerPool default) when unset.
func NewPool(engine *Engine, numWorkers int) *Pool {
	if numWorkers <= 0 {
		numWorkers = 4
	}
	return &Pool{engine: engine, workers: numWorkers}
}

// Run processes every job and returns results in submission order.
func (p *Pool) Run(ctx context.Context, jobs []Job) []*models.DownloadResult {
	results := make([]*models.DownloadResult, len(jobs))
	jobCh := make(chan int, len(jobs))
	for i := range jobs {
		jobCh <- i
	}
	close(jobCh)

	var wg sync.WaitGroup
	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobCh {
				select {
				case <-ctx.Done():
					results[i] = &models.DownloadResult{PublicationID: jobs[i].Publication.Identity()}
					continue
				default:
				}
				job := jobs[i]
				results[i] = p.engine.Download(ctx, job.GeoID, job.Relation, job.Publication, job.Candidates)
			}
		}()
	}
	wg.Wait()
	return results
}
