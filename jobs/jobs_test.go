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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/reports"
	jobmetrics "github.com/himanshudhami/InvoiceX-sub001/internal/jobs"
)

type stubRecalc struct {
	company int64
	rows    int
	err     error
}

func (s *stubRecalc) Recalculate(_ context.Context, companyID int64) (int, error) {
	s.company = companyID
	return s.rows, s.err
}

type stubChecker struct {
	report reports.IntegrityReport
	err    error
}

func (s stubChecker) CheckIntegrity(_ context.Context, companyID int64) (reports.IntegrityReport, error) {
	r := s.report
	r.CompanyID = companyID
	return r, s.err
}

type stubEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (s *stubEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.tasks = append(s.tasks, task)
	return &asynq.TaskInfo{ID: "task-1", Type: task.Type(), Queue: QueueDefault}, nil
}

type stubInspector struct{ info *asynq.QueueInfo }

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return s.info, nil }

func TestTaskPayloads(t *testing.T) {
	task, err := NewPeriodRecalcTask(7)
	require.NoError(t, err)
	assert.Equal(t, TaskPeriodRecalc, task.Type())
	payload, err := decodeCompany(task)
	require.NoError(t, err)
	assert.Equal(t, int64(7), payload.CompanyID)

	_, err = NewIntegrityCheckTask(-1)
	assert.Error(t, err)
	_, err = TaskFor("ledger:unknown", 1)
	assert.Error(t, err)

	_, err = decodeCompany(asynq.NewTask(TaskPeriodRecalc, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	empty, err := decodeCompany(asynq.NewTask(TaskIntegrityCheck, nil))
	require.NoError(t, err)
	assert.Zero(t, empty.CompanyID)
}

func TestPeriodRecalcJob(t *testing.T) {
	svc := &stubRecalc{rows: 12}
	job := NewPeriodRecalcJob(svc, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	task, err := NewPeriodRecalcTask(3)
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, int64(3), svc.company)

	svc.err = errors.New("lock timeout")
	assert.Error(t, job.Handle(context.Background(), task))

	var unconfigured *PeriodRecalcJob
	assert.Error(t, unconfigured.Handle(context.Background(), task))
}

func TestGLIntegrityJob(t *testing.T) {
	drifting := reports.IntegrityReport{
		CheckedAt: time.Now(),
		Drifts: []reports.Drift{{
			Scope: reports.DriftAccount, AccountID: 4, AccountCode: "1300",
			Expected: decimal.NewFromInt(100), Actual: decimal.NewFromInt(90),
		}},
	}
	task, err := NewIntegrityCheckTask(0)
	require.NoError(t, err)

	job := NewGLIntegrityJob(stubChecker{}, nil, nil)
	require.NoError(t, job.Handle(context.Background(), task))

	job = NewGLIntegrityJob(stubChecker{report: drifting}, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	require.NoError(t, job.Handle(context.Background(), task), "drift is reported, not failed, by default")

	job.FailOnDrift = true
	err = job.Handle(context.Background(), task)
	assert.ErrorIs(t, err, ErrDrift)
	assert.ErrorIs(t, err, asynq.SkipRetry)

	job = NewGLIntegrityJob(stubChecker{err: errors.New("db down")}, nil, nil)
	assert.Error(t, job.Handle(context.Background(), task))
}

func TestClientEnqueue(t *testing.T) {
	enq := &stubEnqueuer{}
	client := NewClientWith(enq)

	info, err := client.Enqueue(context.Background(), TaskIntegrityCheck, 5)
	require.NoError(t, err)
	assert.Equal(t, "task-1", info.ID)
	require.Len(t, enq.tasks, 1)
	assert.JSONEq(t, `{"company_id":5}`, string(enq.tasks[0].Payload()))

	_, err = client.Enqueue(context.Background(), "ledger:nope", 5)
	assert.Error(t, err)
	assert.NoError(t, client.Close())
}

func newJobsRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Route("/jobs", h.MountRoutes)
	return r
}

func TestHandlerHealthAndEnqueue(t *testing.T) {
	enq := &stubEnqueuer{}
	h := NewHandler(stubInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 2, Retry: 1}}, NewClientWith(enq), nil)
	router := newJobsRouter(h)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var health queueHealth
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &health))
	assert.Equal(t, 2, health.Pending)
	assert.Equal(t, 1, health.Retry)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/jobs/periods:recalc?company_id=4", nil))
	require.Equal(t, http.StatusAccepted, rr.Code)
	require.Len(t, enq.tasks, 1)
	assert.Equal(t, TaskPeriodRecalc, enq.tasks[0].Type())

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/jobs/periods:recalc?company_id=x", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/jobs/unknown", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	enq.err = asynq.ErrDuplicateTask
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/jobs/integrity:check", nil))
	assert.Equal(t, http.StatusConflict, rr.Code)
}
