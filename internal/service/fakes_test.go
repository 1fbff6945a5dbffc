package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medscan/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medscan/internal/domain/scan"
	"github.com/dmehra2102/prod-golang-projects/medscan/internal/domain/staff"
	"github.com/dmehra2102/prod-golang-projects/medscan/pkg/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	_ scan.Repository  = (*memoryScanRepo)(nil)
	_ staff.Repository = (*fakeStaffRepo)(nil)
	_ AuditRepository  = (*fakeAuditRepo)(nil)
)

func newTestMetrics() *metrics.Collector {
	return metrics.NewCollector("medscan_test", prometheus.NewRegistry())
}

// memoryScanRepo serializes Transition per code the way a row lock does.
type memoryScanRepo struct {
	mu      sync.Mutex
	records map[string]scan.Record
	locks   map[string]*sync.Mutex
	writes  int

	// holdLock widens the window between read and write.
	holdLock time.Duration
}

func newMemoryScanRepo(codes ...string) *memoryScanRepo {
	r := &memoryScanRepo{
		records: make(map[string]scan.Record),
		locks:   make(map[string]*sync.Mutex),
	}
	for _, c := range codes {
		r.records[c] = scan.Record{Code: c, CreatedAt: time.Now()}
	}
	return r
}

func (r *memoryScanRepo) put(rec scan.Record) {
	r.mu.Lock()
	r.records[rec.Code] = rec
	r.mu.Unlock()
}

func (r *memoryScanRepo) get(code string) (scan.Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[code]
	return rec, ok
}

func (r *memoryScanRepo) writeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

func (r *memoryScanRepo) lockFor(code string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[code]
	if !ok {
		l = &sync.Mutex{}
		r.locks[code] = l
	}
	return l
}

func (r *memoryScanRepo) GetByCode(_ context.Context, code string) (*scan.Record, error) {
	rec, ok := r.get(code)
	if !ok {
		return nil, scan.ErrRecordNotFound
	}
	return &rec, nil
}

func (r *memoryScanRepo) Transition(ctx context.Context, code string, fn scan.TransitionFunc) (*scan.Record, error) {
	l := r.lockFor(code)
	l.Lock()
	defer l.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, &scan.StorageError{Kind: scan.StorageTimeout, Op: "lock", Err: err}
	}

	rec, ok := r.get(code)
	if !ok {
		return nil, scan.ErrRecordNotFound
	}
	if err := fn(&rec); err != nil {
		return nil, err
	}
	if r.holdLock > 0 {
		time.Sleep(r.holdLock)
	}

	r.mu.Lock()
	r.records[code] = rec
	r.writes++
	r.mu.Unlock()
	return &rec, nil
}

func (r *memoryScanRepo) ListByActor(_ context.Context, actor string, limit int) ([]*scan.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*scan.Record
	for _, rec := range r.records {
		rec := rec
		byActor := (rec.ValidatedBy != nil && *rec.ValidatedBy == actor) || (rec.DispensedBy != nil && *rec.DispensedBy == actor)
		if byActor && (rec.IsValidated() || rec.IsDispensed()) {
			out = append(out, &rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return latestBy(out[i], actor).After(latestBy(out[j], actor)) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// latestBy mirrors the SQL ordering: only the actor's own transitions count.
func latestBy(rec *scan.Record, actor string) time.Time {
	var t time.Time
	if rec.ValidatedAt != nil && rec.ValidatedBy != nil && *rec.ValidatedBy == actor {
		t = *rec.ValidatedAt
	}
	if rec.DispensedAt != nil && rec.DispensedBy != nil && *rec.DispensedBy == actor && rec.DispensedAt.After(t) {
		t = *rec.DispensedAt
	}
	return t
}

// funcScanRepo lets a test script repository failures.
type funcScanRepo struct {
	TransitionFunc  func(ctx context.Context, code string, fn scan.TransitionFunc) (*scan.Record, error)
	ListByActorFunc func(ctx context.Context, actor string, limit int) ([]*scan.Record, error)
}

func (r *funcScanRepo) GetByCode(context.Context, string) (*scan.Record, error) {
	return nil, scan.ErrRecordNotFound
}

func (r *funcScanRepo) Transition(ctx context.Context, code string, fn scan.TransitionFunc) (*scan.Record, error) {
	return r.TransitionFunc(ctx, code, fn)
}

func (r *funcScanRepo) ListByActor(ctx context.Context, actor string, limit int) ([]*scan.Record, error) {
	return r.ListByActorFunc(ctx, actor, limit)
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []*domain.AuditLog
	err     error
}

func (r *fakeAuditRepo) Create(_ context.Context, entry *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakeAuditRepo) all() []*domain.AuditLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*domain.AuditLog(nil), r.entries...)
}

type fakeStaffRepo struct {
	mu      sync.Mutex
	byNum   map[string]*staff.Staff
	touched map[uuid.UUID]time.Time
	err     error
}

func newFakeStaffRepo(members ...*staff.Staff) *fakeStaffRepo {
	r := &fakeStaffRepo{byNum: make(map[string]*staff.Staff), touched: make(map[uuid.UUID]time.Time)}
	for _, m := range members {
		r.byNum[m.StaffNumber] = m
	}
	return r
}

func (r *fakeStaffRepo) GetByStaffNumber(_ context.Context, num string) (*staff.Staff, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	m, ok := r.byNum[num]
	if !ok {
		return nil, staff.ErrStaffNotFound
	}
	return m, nil
}

func (r *fakeStaffRepo) GetByID(_ context.Context, id uuid.UUID) (*staff.Staff, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.byNum {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, staff.ErrStaffNotFound
}

func (r *fakeStaffRepo) TouchLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touched[id] = at
	return nil
}
