package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/odyssey-auth/internal/auth"
	"github.com/odyssey-erp/odyssey-auth/internal/rbac"
	"github.com/odyssey-erp/odyssey-auth/internal/testing/memstore"
	_ "github.com/odyssey-erp/odyssey-auth/testing"
)

type jobCounter map[string]int

func (c jobCounter) JobEvent(task, outcome string) { c[task+"/"+outcome]++ }

func newBootstrapJob(t *testing.T, store *memstore.Store, counter jobCounter) *BootstrapJob {
	t.Helper()
	tokens, err := auth.NewTokenService("jobs-test-secret", "", time.Hour)
	require.NoError(t, err)
	svc := auth.NewService(auth.ServiceConfig{Repo: store, Roles: store, Hasher: auth.NewHasher(bcrypt.MinCost), Tokens: tokens})
	admin := auth.AdminAccount{Username: "admin", Email: "admin@example.com", Password: "admin-pass"}
	return NewBootstrapJob(rbac.NewBootstrapper(store, nil), svc, admin, nil, counter)
}

func TestBootstrapJobSeedsAndCreatesAdmin(t *testing.T) {
	store := memstore.New()
	counter := jobCounter{}
	job := newBootstrapJob(t, store, counter)

	result, err := job.Run(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, result.AdminCreated)
	assert.Len(t, result.Seed.RolesCreated, 5)

	admin, err := store.FindByUsername(context.Background(), "admin")
	require.NoError(t, err)
	set, err := rbac.NewResolver(store).Resolve(context.Background(), admin)
	require.NoError(t, err)
	assert.True(t, set.Has("ADMINISTER"))
	assert.True(t, set.Has("USERS_READ"))

	result, err = job.Run(context.Background(), false)
	require.NoError(t, err)
	assert.False(t, result.AdminCreated)
	assert.Empty(t, result.Seed.RolesCreated)
	assert.Equal(t, 2, counter[TaskRBACBootstrap+"/success"])
}

func TestBootstrapJobHandleTask(t *testing.T) {
	store := memstore.New()
	job := newBootstrapJob(t, store, jobCounter{})

	task, err := NewBootstrapTask(BootstrapPayload{RequestedBy: "alice", SkipAdmin: true})
	require.NoError(t, err)
	assert.Equal(t, TaskRBACBootstrap, task.Type())

	require.NoError(t, job.Handle(context.Background(), task))
	exists, err := store.ExistsByUsername(context.Background(), "admin")
	require.NoError(t, err)
	assert.False(t, exists)

	perms, roles, err := store.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 41, perms)
	assert.Equal(t, 5, roles)
}

func TestBootstrapJobRejectsBadPayload(t *testing.T) {
	job := newBootstrapJob(t, memstore.New(), jobCounter{})
	err := job.Handle(context.Background(), asynq.NewTask(TaskRBACBootstrap, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

type failingSeeder struct{}

func (failingSeeder) Seed(context.Context) (rbac.SeedReport, error) {
	return rbac.SeedReport{}, errors.New("db down")
}

func TestBootstrapJobRecordsFailure(t *testing.T) {
	counter := jobCounter{}
	job := NewBootstrapJob(failingSeeder{}, nil, auth.AdminAccount{}, nil, counter)
	_, err := job.Run(context.Background(), false)
	require.Error(t, err)
	assert.Equal(t, 1, counter[TaskRBACBootstrap+"/failure"])
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return s.info, s.err }

func TestJobsHealth(t *testing.T) {
	cases := []struct {
		name      string
		inspector QueueInspector
		status    int
		pending   int
	}{
		{"no inspector", nil, http.StatusOK, 0},
		{"queue info", stubInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 3}}, http.StatusOK, 3},
		{"queue missing", stubInspector{err: asynq.ErrQueueNotFound}, http.StatusOK, 0},
		{"redis down", stubInspector{err: errors.New("dial tcp")}, http.StatusServiceUnavailable, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := chi.NewRouter()
			r.Route("/jobs", NewHandler(tc.inspector, nil).MountRoutes)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
			require.Equal(t, tc.status, rec.Code)
			if tc.status != http.StatusOK {
				return
			}
			var body queueHealth
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.pending, body.Pending)
			assert.Equal(t, QueueDefault, body.Queue)
		})
	}
}
