package job

import (
	"context"
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"jan-server/services/flow-api/internal/domain/generation"
	"jan-server/services/flow-api/internal/utils/platformerrors"
)

// MemoryRepository keeps the most recent jobs in a bounded LRU. Used when no
// database is configured.
type MemoryRepository struct {
	mu    sync.Mutex
	jobs  *lru.Cache
	byOp  map[string]string
	clock func() time.Time
}

var _ generation.JobRepository = (*MemoryRepository)(nil)

func NewMemoryRepository(size int) (*MemoryRepository, error) {
	r := &MemoryRepository{
		byOp:  make(map[string]string),
		clock: time.Now,
	}
	// The eviction callback only runs inside Add, which is always called
	// with r.mu held.
	cache, err := lru.NewWithEvict(size, func(_, value interface{}) {
		if job, ok := value.(generation.Job); ok && r.byOp[job.OperationName] == job.ID {
			delete(r.byOp, job.OperationName)
		}
	})
	if err != nil {
		return nil, err
	}
	r.jobs = cache
	return r, nil
}

func (r *MemoryRepository) Create(ctx context.Context, job *generation.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock().UTC()
	job.CreatedAt, job.UpdatedAt = now, now
	r.jobs.Add(job.ID, *job)
	if job.OperationName != "" {
		r.byOp[job.OperationName] = job.ID
	}
	return nil
}

func (r *MemoryRepository) UpdateStatus(ctx context.Context, operationName, status, mediaURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byOp[operationName]
	if !ok {
		return notFound(ctx)
	}
	value, ok := r.jobs.Peek(id)
	if !ok {
		return notFound(ctx)
	}
	job := value.(generation.Job)
	job.Status = status
	if mediaURL != "" {
		job.MediaURL = mediaURL
	}
	job.UpdatedAt = r.clock().UTC()
	r.jobs.Add(id, job)
	return nil
}

func (r *MemoryRepository) FindByOperation(ctx context.Context, operationName string) (*generation.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byOp[operationName]
	if !ok {
		return nil, nil
	}
	value, ok := r.jobs.Peek(id)
	if !ok {
		return nil, nil
	}
	job := value.(generation.Job)
	return &job, nil
}

// List returns up to limit jobs, newest first. Job ids are ULIDs, so id
// order is creation order.
func (r *MemoryRepository) List(ctx context.Context, limit int) ([]generation.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := r.jobs.Keys()
	jobs := make([]generation.Job, 0, len(keys))
	for _, key := range keys {
		if value, ok := r.jobs.Peek(key); ok {
			jobs = append(jobs, value.(generation.Job))
		}
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].ID > jobs[j].ID })
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

func notFound(ctx context.Context) error {
	return platformerrors.NewError(
		ctx,
		platformerrors.LayerRepository,
		platformerrors.ErrorTypeNotFound,
		"generation job not found",
		nil,
		"5b9e0f27-2c4d-4a6e-8f1b-3d5c7e9a0b2d",
	)
}
