package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/b2bmarket/marketplace/internal/jobs"
	"github.com/b2bmarket/marketplace/internal/observability"
	"github.com/b2bmarket/marketplace/internal/orders"
)

type stubOrders struct {
	detail *orders.Detail
	err    error
}

func (s stubOrders) GetByID(ctx context.Context, id int64) (*orders.Detail, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.detail, nil
}

type captureMailer struct {
	mu      sync.Mutex
	to      []string
	subject string
	body    string
	err     error
}

func (m *captureMailer) Send(ctx context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.to = append(m.to, to)
	m.subject = subject
	m.body = body
	return nil
}

type fakeEnqueuer struct {
	tasks []*asynq.Task
	ids   map[string]bool
}

func (f *fakeEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.ids == nil {
		f.ids = make(map[string]bool)
	}
	for _, opt := range opts {
		if opt.Type() == asynq.TaskIDOpt {
			id := opt.Value().(string)
			if f.ids[id] {
				return nil, asynq.ErrTaskIDConflict
			}
			f.ids[id] = true
		}
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{Type: task.Type()}, nil
}

func (f *fakeEnqueuer) Close() error { return nil }

func sampleDetail() *orders.Detail {
	return &orders.Detail{
		Order: orders.Order{ID: 11, QuotationID: 4, UserID: 3, Status: orders.StatusPlaced, TotalAmount: decimal.RequireFromString("1234.5")},
		Customer: orders.Customer{UserID: 3, Name: "Acme Traders", Email: "buyer@acme.test"},
		Items: []orders.Item{
			{ProductID: 7, ProductName: "Steel Rod", Quantity: 2, GrandTotalPrice: decimal.NewNullDecimal(decimal.RequireFromString("1234.5"))},
		},
	}
}

func orderTask(t *testing.T, id int64) *asynq.Task {
	t.Helper()
	task, err := NewOrderPlacedTask(orders.Order{ID: id, QuotationID: 4, UserID: 3, TotalAmount: decimal.NewFromInt(10)})
	require.NoError(t, err)
	return task
}

func TestOrderPlacedJobSendsConfirmation(t *testing.T) {
	mailer := &captureMailer{}
	metrics := jobmetrics.NewMetrics(prometheus.NewRegistry())
	job := NewOrderPlacedJob(stubOrders{detail: sampleDetail()}, mailer, nil, metrics)

	require.NoError(t, job.Handle(context.Background(), orderTask(t, 11)))
	assert.Equal(t, []string{"buyer@acme.test"}, mailer.to)
	assert.Equal(t, "Order #11 confirmed", mailer.subject)
	assert.Contains(t, mailer.body, "Steel Rod x2: INR 1,234.50")
	assert.Contains(t, mailer.body, "Total: INR 1,234.50")
}

func TestOrderPlacedJobFailures(t *testing.T) {
	t.Run("missing order is not retried", func(t *testing.T) {
		job := NewOrderPlacedJob(stubOrders{err: orders.ErrNotFound}, &captureMailer{}, nil, nil)
		err := job.Handle(context.Background(), orderTask(t, 99))
		assert.ErrorIs(t, err, asynq.SkipRetry)
	})
	t.Run("bad payload is not retried", func(t *testing.T) {
		job := NewOrderPlacedJob(stubOrders{detail: sampleDetail()}, &captureMailer{}, nil, nil)
		err := job.Handle(context.Background(), asynq.NewTask(TaskOrderPlaced, []byte("{")))
		assert.ErrorIs(t, err, asynq.SkipRetry)
	})
	t.Run("mail failure is retried", func(t *testing.T) {
		boom := errors.New("relay down")
		job := NewOrderPlacedJob(stubOrders{detail: sampleDetail()}, &captureMailer{err: boom}, nil, nil)
		err := job.Handle(context.Background(), orderTask(t, 11))
		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, asynq.SkipRetry)
	})
}

type stubPurger struct {
	olderThan time.Duration
	removed   int64
}

func (s *stubPurger) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	s.olderThan = olderThan
	return s.removed, nil
}

func TestIdempotencyCleanupJob(t *testing.T) {
	store := &stubPurger{removed: 3}
	job := NewIdempotencyCleanupJob(store, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewIdempotencyCleanupTask(0)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 24*time.Hour, store.olderThan)

	task, err = NewIdempotencyCleanupTask(72)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 72*time.Hour, store.olderThan)
}

func TestClientOrderPlacedDeduplicatesByOrder(t *testing.T) {
	enq := &fakeEnqueuer{}
	client := NewClientWith(enq)
	order := orders.Order{ID: 5, QuotationID: 2, UserID: 3, TotalAmount: decimal.RequireFromString("112.00")}

	require.NoError(t, client.OrderPlaced(context.Background(), order))
	require.NoError(t, client.OrderPlaced(context.Background(), order))
	require.Len(t, enq.tasks, 1)
	assert.Equal(t, TaskOrderPlaced, enq.tasks[0].Type())

	var payload OrderPlacedPayload
	require.NoError(t, json.Unmarshal(enq.tasks[0].Payload(), &payload))
	assert.Equal(t, int64(5), payload.OrderID)
	assert.True(t, payload.TotalAmount.Equal(decimal.NewFromInt(112)))

	var nilClient *Client
	assert.NoError(t, nilClient.OrderPlaced(context.Background(), order))
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func TestJobsHealth(t *testing.T) {
	cases := []struct {
		name      string
		inspector QueueInspector
		status    int
		pending   int
	}{
		{"no inspector", nil, http.StatusOK, 0},
		{"queue info", stubInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 4}}, http.StatusOK, 4},
		{"redis down", stubInspector{err: errors.New("dial tcp")}, http.StatusServiceUnavailable, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := chi.NewRouter()
			r.Route("/jobs", NewHandler(tc.inspector, nil).MountRoutes)
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
			require.Equal(t, tc.status, rr.Code)
			if tc.status != http.StatusOK {
				return
			}
			var body queueHealth
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
			assert.Equal(t, tc.pending, body.Pending)
		})
	}
}

func TestComposeMessage(t *testing.T) {
	msg := composeMessage("noreply@market.test", "buyer@acme.test", "Hi", "line1\nline2")
	assert.Contains(t, msg, "Subject: Hi\r\n")
	assert.Contains(t, msg, "\r\n\r\nline1\r\nline2")
}

func TestWorkerMetricsServerExposesJobFailures(t *testing.T) {
	registry := observability.NewMetrics()
	metrics := jobmetrics.NewMetrics(registry.Registerer())
	boom := errors.New("relay down")
	job := NewOrderPlacedJob(stubOrders{detail: sampleDetail()}, &captureMailer{err: boom}, nil, metrics)
	require.ErrorIs(t, job.Handle(context.Background(), orderTask(t, 11)), boom)

	srv := httptest.NewServer(NewMetricsServer("", registry.Handler()).Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `marketplace_jobs_failures_total{task="order:placed"} 1`)
	assert.Contains(t, string(body), `marketplace_jobs_total{status="failure",task="order:placed"} 1`)

	resp, err = http.Post(srv.URL+"/metrics", "text/plain", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
