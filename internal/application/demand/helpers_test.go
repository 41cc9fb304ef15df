package demand

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rezkam/demand/internal/domain"
	"github.com/rezkam/demand/internal/ptr"
)

var jan2025 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// stubDirectory implements Directory with overridable functions.
type stubDirectory struct {
	ListRecurringTasksFn func(ctx context.Context, q TaskQuery) ([]domain.RecurringTask, error)
	ListPreferredStaffFn func(ctx context.Context) ([]domain.Staff, error)
	ListSkillsFn         func(ctx context.Context) ([]string, error)
	ListClientsFn        func(ctx context.Context) ([]domain.Client, error)

	taskCalls atomic.Int32
}

func (s *stubDirectory) ListRecurringTasks(ctx context.Context, q TaskQuery) ([]domain.RecurringTask, error) {
	s.taskCalls.Add(1)
	return s.ListRecurringTasksFn(ctx, q)
}

func (s *stubDirectory) ListPreferredStaff(ctx context.Context) ([]domain.Staff, error) {
	return s.ListPreferredStaffFn(ctx)
}

func (s *stubDirectory) ListSkills(ctx context.Context) ([]string, error) {
	return s.ListSkillsFn(ctx)
}

func (s *stubDirectory) ListClients(ctx context.Context) ([]domain.Client, error) {
	return s.ListClientsFn(ctx)
}

type fixture struct {
	tasks   []domain.RecurringTask
	staff   []domain.Staff
	skills  []string
	clients []domain.Client
}

func newStubDirectory(f fixture) *stubDirectory {
	return &stubDirectory{
		ListRecurringTasksFn: func(context.Context, TaskQuery) ([]domain.RecurringTask, error) { return f.tasks, nil },
		ListPreferredStaffFn: func(context.Context) ([]domain.Staff, error) { return f.staff, nil },
		ListSkillsFn:         func(context.Context) ([]string, error) { return f.skills, nil },
		ListClientsFn:        func(context.Context) ([]domain.Client, error) { return f.clients, nil },
	}
}

func (f fixture) catalog() Catalog {
	return NewCatalog(f.skills, f.clients, f.staff)
}

func monthlyTask(id, name, client, skill string, hours float64, staffID string) domain.RecurringTask {
	t := domain.RecurringTask{
		ID:             id,
		Name:           name,
		ClientID:       client,
		SkillType:      skill,
		EstimatedHours: hours,
		Recurrence: domain.Recurrence{
			Pattern:   domain.RecurrenceMonthly,
			StartDate: jan2025.AddDate(0, 0, 9),
		},
		IsActive: true,
	}
	if staffID != "" {
		t.PreferredStaffID = ptr.To(staffID)
	}
	return t
}

// practiceFixture: two skills, two clients, three monthly tasks.
//
//	t1 Tax   acme    5h  ana
//	t2 Audit acme   10h  bob
//	t3 Tax   globex  4h  unassigned
func practiceFixture() fixture {
	return fixture{
		tasks: []domain.RecurringTask{
			monthlyTask("t1", "Payroll tax", "acme", "Tax", 5, "ana"),
			monthlyTask("t2", "Annual audit prep", "acme", "Audit", 10, "bob"),
			monthlyTask("t3", "Sales tax", "globex", "Tax", 4, ""),
		},
		staff: []domain.Staff{
			{ID: "ANA", Name: "Ana Lind", RoleTitle: "Senior"},
			{ID: "bob", Name: "Bob Berg"},
		},
		skills: []string{"Tax", "Audit", "Advisory"},
		clients: []domain.Client{
			{ID: "acme", Name: "Acme AB"},
			{ID: "globex", Name: "Globex"},
		},
	}
}

func buildFixture(f fixture, strategy domain.AggregationStrategy, months int) BuildResult {
	window := domain.NewMonthWindow(jan2025, months)
	extracted, err := NewExtractor().Extract(f.tasks, f.catalog(), window)
	if err != nil {
		panic(err)
	}
	return NewBuilder(domain.DimensionSkill).Build(extracted.Entries, strategy, window)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// countingStore wraps MemoryStore and counts Clear calls.
type countingStore struct {
	*MemoryStore
	clears atomic.Int32
}

func newCountingStore() *countingStore {
	return &countingStore{MemoryStore: NewMemoryStore()}
}

func (s *countingStore) Clear(ctx context.Context) error {
	s.clears.Add(1)
	return s.MemoryStore.Clear(ctx)
}

// recordingObserver records events for assertions.
type recordingObserver struct {
	NopObserver

	mu          sync.Mutex
	strategies  []domain.AggregationStrategy
	hits        int
	misses      int
	invalidated []string
	blocked     []domain.InvalidationBlocked
	filters     []FilterEvent
	retries     []time.Duration
}

func (o *recordingObserver) StrategySelected(_ context.Context, s domain.AggregationStrategy) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.strategies = append(o.strategies, s)
}

func (o *recordingObserver) CacheHit(context.Context, string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.hits++
}

func (o *recordingObserver) CacheMiss(context.Context, string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.misses++
}

func (o *recordingObserver) CacheInvalidated(_ context.Context, reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.invalidated = append(o.invalidated, reason)
}

func (o *recordingObserver) InvalidationBlocked(_ context.Context, b domain.InvalidationBlocked) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.blocked = append(o.blocked, b)
}

func (o *recordingObserver) FilterApplied(_ context.Context, e FilterEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.filters = append(o.filters, e)
}

func (o *recordingObserver) LoadRetried(_ context.Context, _ int, d time.Duration, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.retries = append(o.retries, d)
}

func taskIDs(m *domain.DemandMatrix) map[string]struct{} {
	ids := make(map[string]struct{})
	for _, cells := range [][]domain.DataPoint{m.DataPoints, m.Unassigned} {
		for _, p := range cells {
			for _, e := range p.TaskBreakdown {
				ids[e.RecurringTaskID] = struct{}{}
			}
		}
	}
	return ids
}
