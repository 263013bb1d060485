// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agency-workspace/internal/backend"
	"agency-workspace/internal/common/config"
	"agency-workspace/internal/common/database"
	"agency-workspace/internal/common/logger"
	"agency-workspace/internal/models"
	"agency-workspace/internal/workspace"
)

// fakeBackend is an in-memory stand-in for the agency REST backend, serving
// the same untagged record list for every kind.
type fakeBackend struct {
	mu      sync.Mutex
	records map[string]map[string]interface{}
	nextID  int
	down    bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{records: map[string]map[string]interface{}{}, nextID: 100}
}

func (b *fakeBackend) seed(recs ...map[string]interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range recs {
		b.records[fmt.Sprintf("%v", r["id"])] = r
	}
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/leads/list/", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.down {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		out := []map[string]interface{}{}
		for _, rec := range b.records {
			out = append(out, rec)
		}
		json.NewEncoder(w).Encode(out)
	})

	mux.HandleFunc("/leads/create/", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		b.nextID++
		id := fmt.Sprintf("%d", b.nextID)
		body["id"] = id
		b.records[id] = body
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(body)
	})

	mux.HandleFunc("/leads/update/", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		id := parts[len(parts)-1]
		rec, ok := b.records[id]
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		for k, v := range body {
			rec[k] = v
		}
		json.NewEncoder(w).Encode(rec)
	})

	mux.HandleFunc("/leads/followup/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	return mux
}

func fixedClock() time.Time {
	return time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
}

func TestWorkspaceEndToEnd(t *testing.T) {
	be := newFakeBackend()
	be.seed(
		map[string]interface{}{"id": "1", "customer_full_name": "Asha Verma", "contact_number": "9876543210", "lead_status": "followup", "next_followup_date": "2025-03-05"},
		map[string]interface{}{"id": "2", "task_description": "collect passports", "is_internal_task": true, "due_date": "2025-03-08"},
		map[string]interface{}{"id": "3", "customer_full_name": "Vik Singh", "loan_amount": "Rs 10,000", "recovered_amount": 2000.0, "loan_promise_date": "01/03/2025"},
	)

	server := httptest.NewServer(be.handler())
	defer server.Close()

	mr := miniredis.RunT(t)
	redisClient, err := database.NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	defer redisClient.Close()

	session := backend.NewSession("token-1", "org-1", "branch-1")
	client := backend.NewClient(server.URL, 5*time.Second)
	cache := workspace.NewSnapshotCache(redisClient, time.Minute)

	ws := workspace.New(workspace.Options{
		API:     client,
		Session: session,
		Cache:   cache,
		Logger:  logger.NewTestLogger(t),
		Now:     fixedClock,
	})

	ctx := context.Background()
	require.NoError(t, ws.Refresh(ctx))

	// --- Classification spread across the three tabs ---
	assert.Len(t, ws.Leads(), 1)
	assert.Len(t, ws.Tasks(), 1)
	require.Len(t, ws.Loans(), 1)

	loan := ws.Loans()[0]
	assert.Equal(t, 10000.0, loan.Amount)
	assert.Equal(t, "2025-03-01", loan.DueDate)
	assert.Equal(t, models.LoanStatusOverdue, loan.LoanStatus)

	// --- Overdue timeline across kinds, oldest first ---
	overdue := ws.OverdueFollowUps()
	require.Len(t, overdue, 3)
	assert.Equal(t, "3", overdue[0].RecordID)
	assert.Equal(t, "1", overdue[1].RecordID)
	assert.Equal(t, "2", overdue[2].RecordID)

	// --- Optimistic create round trip ---
	provisionalID, pending, err := ws.CreateLead(map[string]interface{}{
		"customer_full_name": "Nina Rao",
		"contact_number":     "9000012345",
	})
	require.NoError(t, err)
	assert.Len(t, ws.Leads(), 2, "created lead visible before the backend answered")

	waitCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	require.NoError(t, pending.Wait(waitCtx))

	_, stillProvisional := ws.Record(provisionalID)
	assert.False(t, stillProvisional, "record re-keyed to the server id")
	assert.Len(t, ws.Leads(), 2)

	// --- Loan recovery flips the derived status without a refetch ---
	pending, err = ws.AddRecovery("3", 8000, "full settlement")
	require.NoError(t, err)
	require.NoError(t, pending.Wait(waitCtx))
	assert.Equal(t, models.LoanStatusCleared, ws.Loans()[0].LoanStatus)

	overdue = ws.OverdueFollowUps()
	for _, item := range overdue {
		assert.NotEqual(t, "3", item.RecordID, "settled loans leave the overdue timeline")
	}

	// --- Backend outage degrades to the cached snapshot ---
	be.mu.Lock()
	be.down = true
	be.mu.Unlock()

	require.NoError(t, ws.Refresh(ctx), "refresh should fall back to the snapshot cache")
	assert.NotEmpty(t, ws.Leads())
}

func TestEndToEndMutationFailureSurfacesUnsynced(t *testing.T) {
	be := newFakeBackend()
	be.seed(map[string]interface{}{"id": "1", "customer_full_name": "Asha", "lead_status": "new"})

	server := httptest.NewServer(be.handler())
	defer server.Close()

	session := backend.NewSession("token-1", "org-1", "branch-1")
	client := backend.NewClient(server.URL, 2*time.Second)

	ws := workspace.New(workspace.Options{
		API:     client,
		Session: session,
		Logger:  logger.NewTestLogger(t),
		Now:     fixedClock,
	})

	ctx := context.Background()
	require.NoError(t, ws.Refresh(ctx))

	// Take the backend away before the mutation's async leg runs
	server.Close()

	pending, err := ws.AddRemark("1", "tried calling", "phone")
	require.NoError(t, err, "the optimistic apply itself must succeed")

	waitCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	assert.Error(t, pending.Wait(waitCtx))

	raw, ok := ws.Record("1")
	require.True(t, ok)
	assert.Equal(t, "tried calling", raw.String("remarks"), "optimistic state is kept, not rolled back")
	assert.True(t, ws.Unsynced("1"))

	leads := ws.Leads()
	require.Len(t, leads, 1)
	assert.True(t, leads[0].Unsynced)
}
