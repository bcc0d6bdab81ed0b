package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novelforge/novelforge/internal/shared"
	"github.com/novelforge/novelforge/jobs"
)

// ============================================================================
// FAKES
// ============================================================================

type fakeQueue struct {
	tasks map[string]*asynq.TaskInfo
	err   error
	calls int
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{tasks: make(map[string]*asynq.TaskInfo)}
}

func (q *fakeQueue) EnqueueChapterGenerate(_ context.Context, payload jobs.ChapterGeneratePayload, taskID string) (*asynq.TaskInfo, error) {
	q.calls++
	if q.err != nil {
		return nil, q.err
	}
	if _, ok := q.tasks[taskID]; ok {
		return nil, asynq.ErrTaskIDConflict
	}
	raw, _ := json.Marshal(payload)
	info := &asynq.TaskInfo{ID: taskID, Queue: jobs.QueueDefault, Type: jobs.TaskChapterGenerate, Payload: raw, State: asynq.TaskStatePending, MaxRetry: jobs.GenerateMaxRetry}
	q.tasks[taskID] = info
	return info, nil
}

func (q *fakeQueue) GetTaskInfo(_, id string) (*asynq.TaskInfo, error) {
	info, ok := q.tasks[id]
	if !ok {
		return nil, asynq.ErrTaskNotFound
	}
	return info, nil
}

type memoryKeys struct {
	claimed map[string]bool
}

func (m *memoryKeys) Claim(_ context.Context, module, key string) error {
	if m.claimed[module+":"+key] {
		return shared.ErrIdempotencyConflict
	}
	m.claimed[module+":"+key] = true
	return nil
}

func (m *memoryKeys) Release(_ context.Context, module, key string) error {
	delete(m.claimed, module+":"+key)
	return nil
}

func newTestService() (*Service, *fakeQueue, *memoryKeys) {
	q := newFakeQueue()
	keys := &memoryKeys{claimed: map[string]bool{}}
	return NewService(sampleStory(), q, q, keys, shared.ChangeRecorder{}), q, keys
}

// ============================================================================
// SERVICE
// ============================================================================

func TestEnqueueChecksOwnership(t *testing.T) {
	svc, q, _ := newTestService()
	_, err := svc.Enqueue(context.Background(), 2, 5, GenerateRequest{}, "")
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.Zero(t, q.calls)
}

func TestEnqueueWithoutKeyAlwaysSchedules(t *testing.T) {
	svc, q, _ := newTestService()
	a, err := svc.Enqueue(context.Background(), 1, 5, GenerateRequest{}, "")
	require.NoError(t, err)
	b, err := svc.Enqueue(context.Background(), 1, 5, GenerateRequest{}, "")
	require.NoError(t, err)

	assert.NotEqual(t, a.TaskID, b.TaskID)
	assert.Equal(t, "pending", a.State)
	assert.Len(t, q.tasks, 2)
}

func TestEnqueueIdempotencyKeyReplays(t *testing.T) {
	svc, q, _ := newTestService()
	first, err := svc.Enqueue(context.Background(), 1, 5, GenerateRequest{Instructions: "storm"}, "key-1")
	require.NoError(t, err)
	second, err := svc.Enqueue(context.Background(), 1, 5, GenerateRequest{Instructions: "storm"}, "key-1")
	require.NoError(t, err)

	assert.Equal(t, first.TaskID, second.TaskID)
	assert.False(t, first.Replayed)
	assert.True(t, second.Replayed)
	assert.Equal(t, "pending", second.State)
	assert.Equal(t, 1, q.calls)
	assert.Equal(t, TaskIDFor(1, 5, "key-1"), first.TaskID)
}

type ownedNovels map[int64]bool

func (o ownedNovels) Owned(_ context.Context, userID, id int64) error {
	if userID != 1 || !o[id] {
		return shared.ErrNotFound
	}
	return nil
}

func TestEnqueueKeyReusedOnAnotherNovelSchedulesBoth(t *testing.T) {
	q := newFakeQueue()
	keys := &memoryKeys{claimed: map[string]bool{}}
	svc := NewService(ownedNovels{5: true, 6: true}, q, q, keys, shared.ChangeRecorder{})

	first, err := svc.Enqueue(context.Background(), 1, 5, GenerateRequest{}, "k1")
	require.NoError(t, err)
	second, err := svc.Enqueue(context.Background(), 1, 6, GenerateRequest{}, "k1")
	require.NoError(t, err)

	assert.False(t, second.Replayed)
	assert.NotEqual(t, first.TaskID, second.TaskID)
	assert.Equal(t, 2, q.calls)
	require.Contains(t, q.tasks, second.TaskID)

	status, err := svc.Status(context.Background(), 1, second.TaskID)
	require.NoError(t, err)
	assert.Equal(t, int64(6), status.NovelID)

	replay, err := svc.Enqueue(context.Background(), 1, 6, GenerateRequest{}, "k1")
	require.NoError(t, err)
	assert.True(t, replay.Replayed)
	assert.Equal(t, second.TaskID, replay.TaskID)
}

type failingAudit struct{ calls int }

func (f *failingAudit) Record(context.Context, shared.AuditLog) error {
	f.calls++
	return errors.New("audit table locked")
}

type bumpCounter struct{ users []int64 }

func (b *bumpCounter) Bump(_ context.Context, userID int64) error {
	b.users = append(b.users, userID)
	return nil
}

func TestEnqueueAuditFailureIsLoggedNotSurfaced(t *testing.T) {
	q := newFakeQueue()
	audit := &failingAudit{}
	stats := &bumpCounter{}
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	svc := NewService(sampleStory(), q, q, nil, shared.ChangeRecorder{Audit: audit, Stats: stats, Logger: logger})

	ticket, err := svc.Enqueue(context.Background(), 1, 5, GenerateRequest{}, "")
	require.NoError(t, err)
	assert.NotEmpty(t, ticket.TaskID)
	assert.Equal(t, 1, audit.calls)
	assert.Equal(t, []int64{1}, stats.users)
	assert.Contains(t, logs.String(), "audit record failed")
	assert.Contains(t, logs.String(), "audit table locked")
}

func TestEnqueueFailureReleasesKey(t *testing.T) {
	svc, q, keys := newTestService()
	q.err = errors.New("redis unavailable")

	_, err := svc.Enqueue(context.Background(), 1, 5, GenerateRequest{}, "key-2")
	require.Error(t, err)
	assert.Empty(t, keys.claimed)

	q.err = nil
	ticket, err := svc.Enqueue(context.Background(), 1, 5, GenerateRequest{}, "key-2")
	require.NoError(t, err)
	assert.False(t, ticket.Replayed)
}

func TestStatus(t *testing.T) {
	svc, q, _ := newTestService()
	ticket, err := svc.Enqueue(context.Background(), 1, 5, GenerateRequest{}, "")
	require.NoError(t, err)

	info := q.tasks[ticket.TaskID]
	info.State = asynq.TaskStateCompleted
	info.Result = []byte(`{"chapter_id":42,"words":900}`)
	info.CompletedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	status, err := svc.Status(context.Background(), 1, ticket.TaskID)
	require.NoError(t, err)
	assert.Equal(t, "completed", status.State)
	assert.Equal(t, int64(42), status.ChapterID)
	assert.Equal(t, int64(5), status.NovelID)
	require.NotNil(t, status.CompletedAt)

	_, err = svc.Status(context.Background(), 2, ticket.TaskID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.Status(context.Background(), 1, uuid.NewString())
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.Status(context.Background(), 1, "not-a-task")
	var verr *shared.ValidationError
	assert.ErrorAs(t, err, &verr)
}

// ============================================================================
// HANDLER
// ============================================================================

func newRouter(h *Handler, userID int64) chi.Router {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithIdentity(req.Context(), shared.Identity{UserID: userID})))
		})
	})
	h.MountRoutes(r)
	return r
}

func TestHandlerEnqueueAndStatus(t *testing.T) {
	svc, _, _ := newTestService()
	r := newRouter(NewHandler(nil, svc, 0), 1)

	req := httptest.NewRequest(http.MethodPost, "/novels/5/chapters/generate", strings.NewReader(`{"instructions":"a storm","target_words":900}`))
	req.Header.Set(IdempotencyHeader, "abc")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var ticket Ticket
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ticket))
	assert.Equal(t, "/api/generations/"+ticket.TaskID, rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/generations/"+ticket.TaskID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"state":"pending"`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/novels/5/chapters/generate", strings.NewReader(`{"target_words":50}`)))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandlerRateLimitsPerUser(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(nil, svc, 2)
	alice := newRouter(h, 1)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		alice.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/novels/5/chapters/generate", strings.NewReader(`{}`)))
		require.Equal(t, http.StatusAccepted, rec.Code)
	}
	rec := httptest.NewRecorder()
	alice.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/novels/5/chapters/generate", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	bob := newRouter(h, 2)
	rec = httptest.NewRecorder()
	bob.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/novels/5/chapters/generate", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
