// internal/workspace/store.go
package workspace

import (
	"context"
	"sync"
	"time"

	"agency-workspace/internal/backend"
	"agency-workspace/internal/common/logger"
	"agency-workspace/internal/common/metrics"
	"agency-workspace/internal/models"
	"agency-workspace/internal/records"
)

// API is the backend surface the workspace mutates against.
type API interface {
	ListRecords(ctx context.Context, rc backend.RequestContext) ([]models.RawRecord, error)
	GetRecord(ctx context.Context, rc backend.RequestContext, id string) (models.RawRecord, error)
	CreateRecord(ctx context.Context, rc backend.RequestContext, fields models.RawRecord) (models.RawRecord, error)
	UpdateRecord(ctx context.Context, rc backend.RequestContext, id string, fields models.RawRecord) (models.RawRecord, error)
	AddFollowUp(ctx context.Context, rc backend.RequestContext, req backend.FollowUpRequest) error
	DeleteRecord(ctx context.Context, rc backend.RequestContext, id string) error
}

// Journal receives an audit entry for every mutation attempt and outcome.
type Journal interface {
	Record(ctx context.Context, action, recordID, outcome string, payload map[string]interface{}) error
}

// Workspace holds the in-memory record collection behind the unified
// leads/loans/tasks screens. Raw records are the single source of truth;
// classification and status derivation are recomputed on every read, never
// cached across state versions.
type Workspace struct {
	mu      sync.RWMutex
	api     API
	session *backend.Session
	cache   *SnapshotCache
	journal Journal
	logger  logger.Logger
	now     func() time.Time

	byID  map[string]models.RawRecord
	order []string

	// Per-record monotonic sequence numbers guard against stale
	// last-response-wins reconciliation from overlapping mutations.
	seq      map[string]uint64
	nextSeq  uint64
	unsynced map[string]bool
}

// Options configures a Workspace. Cache and Journal are optional.
type Options struct {
	API     API
	Session *backend.Session
	Cache   *SnapshotCache
	Journal Journal
	Logger  logger.Logger
	Now     func() time.Time
}

func New(opts Options) *Workspace {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Workspace{
		api:      opts.API,
		session:  opts.Session,
		cache:    opts.Cache,
		journal:  opts.Journal,
		logger:   log.WithFields(map[string]interface{}{"component": "workspace"}),
		now:      now,
		byID:     make(map[string]models.RawRecord),
		seq:      make(map[string]uint64),
		unsynced: make(map[string]bool),
	}
}

func (w *Workspace) today() string {
	return w.now().Format("2006-01-02")
}

// Refresh refetches the shared list endpoint and replaces the collection.
// On backend failure the last snapshot is served from cache, so a restart or
// an outage does not blank the workspace.
func (w *Workspace) Refresh(ctx context.Context) error {
	rc, err := w.session.Context()
	if err != nil {
		return err
	}

	raw, err := w.api.ListRecords(ctx, rc)
	if err != nil {
		w.logger.Warn("list fetch failed, trying snapshot cache", map[string]interface{}{
			"error": err.Error(),
		})
		if w.cache != nil {
			if cached, cacheErr := w.cache.Load(ctx, rc.Organization); cacheErr == nil {
				w.replace(cached)
				return nil
			}
		}
		return err
	}

	w.replace(raw)

	if w.cache != nil {
		if cacheErr := w.cache.Save(ctx, rc.Organization, raw); cacheErr != nil {
			w.logger.Warn("snapshot cache save failed", map[string]interface{}{
				"error": cacheErr.Error(),
			})
		}
	}

	return nil
}

func (w *Workspace) replace(raw []models.RawRecord) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.byID = make(map[string]models.RawRecord, len(raw))
	w.order = w.order[:0]
	for _, r := range raw {
		id := r.ID()
		if id == "" {
			continue
		}
		w.byID[id] = r
		w.order = append(w.order, id)
	}

	// Refreshed records supersede any in-flight reconciliation.
	w.seq = make(map[string]uint64)
	w.unsynced = make(map[string]bool)

	w.publishGauges()
}

// publishGauges requires w.mu held.
func (w *Workspace) publishGauges() {
	counts := map[models.Kind]int{}
	for _, id := range w.order {
		counts[records.Classify(w.byID[id])]++
	}
	for kind, n := range counts {
		metrics.RecordsClassified.WithLabelValues(string(kind)).Add(float64(n))
	}
	metrics.UnsyncedRecords.Set(float64(len(w.unsynced)))

	leads, tasks, loans := w.partitionLocked()
	metrics.OverdueFollowUps.Set(float64(len(records.OverdueFollowUps(leads, tasks, loans, w.today()))))
}

// partitionLocked materializes the three typed collections. Requires w.mu.
func (w *Workspace) partitionLocked() ([]models.Lead, []models.Task, []models.Loan) {
	today := w.today()
	leads := []models.Lead{}
	tasks := []models.Task{}
	loans := []models.Loan{}

	for _, id := range w.order {
		raw, ok := w.byID[id]
		if !ok {
			continue
		}
		switch records.Classify(raw) {
		case models.KindLoan:
			loan := records.AsLoan(raw, today)
			loan.Unsynced = w.unsynced[id]
			loans = append(loans, loan)
		case models.KindTask:
			task := records.AsTask(raw, today)
			task.Unsynced = w.unsynced[id]
			tasks = append(tasks, task)
		default:
			lead := records.AsLead(raw)
			lead.Unsynced = w.unsynced[id]
			leads = append(leads, lead)
		}
	}

	return leads, tasks, loans
}

// Leads returns the lead partition, reclassified and re-derived on each call.
func (w *Workspace) Leads() []models.Lead {
	w.mu.RLock()
	defer w.mu.RUnlock()
	leads, _, _ := w.partitionLocked()
	return leads
}

// Tasks returns the task partition.
func (w *Workspace) Tasks() []models.Task {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, tasks, _ := w.partitionLocked()
	return tasks
}

// Loans returns the loan partition.
func (w *Workspace) Loans() []models.Loan {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, _, loans := w.partitionLocked()
	return loans
}

// FilterLeads applies tab criteria to the lead partition.
func (w *Workspace) FilterLeads(c records.Criteria) []models.Lead {
	if c.Today == "" {
		c.Today = w.today()
	}
	return records.FilterLeads(w.Leads(), c)
}

// FilterTasks applies tab criteria to the task partition.
func (w *Workspace) FilterTasks(c records.Criteria) []models.Task {
	if c.Today == "" {
		c.Today = w.today()
	}
	return records.FilterTasks(w.Tasks(), c)
}

// FilterLoans applies tab criteria to the loan partition.
func (w *Workspace) FilterLoans(c records.Criteria) []models.Loan {
	if c.Today == "" {
		c.Today = w.today()
	}
	return records.FilterLoans(w.Loans(), c)
}

// OverdueFollowUps recomputes the cross-tab overdue timeline.
func (w *Workspace) OverdueFollowUps() []models.FollowUpItem {
	w.mu.RLock()
	defer w.mu.RUnlock()
	leads, tasks, loans := w.partitionLocked()
	return records.OverdueFollowUps(leads, tasks, loans, w.today())
}

// Record returns the raw record for id, if present.
func (w *Workspace) Record(id string) (models.RawRecord, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	raw, ok := w.byID[id]
	if !ok {
		return nil, false
	}
	return raw.Clone(), true
}

// Unsynced reports whether a record's optimistic state diverged from the
// backend (its last mutation failed and was not rolled back).
func (w *Workspace) Unsynced(id string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.unsynced[id]
}

// applyOptimistic overwrites the local copy and stamps a new sequence number.
func (w *Workspace) applyOptimistic(id string, raw models.RawRecord) uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, exists := w.byID[id]; !exists {
		w.order = append(w.order, id)
	}
	w.byID[id] = raw
	w.nextSeq++
	w.seq[id] = w.nextSeq
	return w.nextSeq
}

// reconcile merges the server's authoritative response into the local record,
// matched by id. Fields the server did not return survive from the local
// copy. Responses stamped older than the last applied sequence are discarded.
// When the server assigned a different id (creation), the record is re-keyed.
func (w *Workspace) reconcile(id string, seq uint64, server models.RawRecord) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.seq[id] > seq {
		return false
	}

	local, exists := w.byID[id]
	if !exists {
		return false
	}

	merged := local.Merge(server)
	serverID := merged.ID()
	if serverID != "" && serverID != id {
		delete(w.byID, id)
		delete(w.unsynced, id)
		w.seq[serverID] = w.seq[id]
		delete(w.seq, id)
		for i, oid := range w.order {
			if oid == id {
				w.order[i] = serverID
				break
			}
		}
		id = serverID
	}

	w.byID[id] = merged
	delete(w.unsynced, id)
	metrics.UnsyncedRecords.Set(float64(len(w.unsynced)))
	return true
}

// reconcileByKey merges a server response into the first record, in
// insertion order, matching a composite key (for creation-adjacent flows
// keyed by employee and date rather than id). Insertion order keeps the
// match deterministic when two records share the key.
func (w *Workspace) reconcileByKey(key map[string]string, server models.RawRecord) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, id := range w.order {
		raw, ok := w.byID[id]
		if !ok {
			continue
		}
		matched := true
		for field, want := range key {
			if raw.String(field) != want {
				matched = false
				break
			}
		}
		if !matched {
			continue
		}
		w.byID[id] = raw.Merge(server)
		delete(w.unsynced, id)
		metrics.UnsyncedRecords.Set(float64(len(w.unsynced)))
		return true
	}
	return false
}

// markUnsynced flags a record whose mutation failed remotely. The optimistic
// state stays in place; the flag surfaces the divergence instead of hiding it.
func (w *Workspace) markUnsynced(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.unsynced[id] = true
	metrics.UnsyncedRecords.Set(float64(len(w.unsynced)))
}

// remove drops a record from the collection.
func (w *Workspace) remove(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.byID, id)
	delete(w.seq, id)
	delete(w.unsynced, id)
	for i, oid := range w.order {
		if oid == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
}

func (w *Workspace) journalEntry(action, recordID, outcome string, payload map[string]interface{}) {
	if w.journal == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.journal.Record(ctx, action, recordID, outcome, payload); err != nil {
		w.logger.Warn("audit journal write failed", map[string]interface{}{
			"action": action,
			"error":  err.Error(),
		})
	}
}
