package novels

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novelforge/novelforge/internal/shared"
)

type mockRepository struct {
	novels map[int64]Novel
	nextID int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{novels: make(map[int64]Novel), nextID: 1}
}

func (m *mockRepository) List(_ context.Context, userID int64, req ListRequest, offset int) ([]Novel, int, error) {
	var matched []Novel
	for _, n := range m.novels {
		if n.UserID != userID {
			continue
		}
		if req.Search != "" && !strings.Contains(strings.ToLower(n.Title), strings.ToLower(req.Search)) {
			continue
		}
		if req.Status != "" && n.Status != req.Status {
			continue
		}
		matched = append(matched, n)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + req.Limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (m *mockRepository) Get(_ context.Context, userID, id int64) (Novel, error) {
	n, ok := m.novels[id]
	if !ok || n.UserID != userID {
		return Novel{}, shared.ErrNotFound
	}
	return n, nil
}

func (m *mockRepository) Create(_ context.Context, novel Novel) (Novel, error) {
	novel.ID = m.nextID
	m.nextID++
	novel.CreatedAt = time.Now()
	novel.UpdatedAt = novel.CreatedAt
	m.novels[novel.ID] = novel
	return novel, nil
}

func (m *mockRepository) Update(ctx context.Context, novel Novel) (Novel, error) {
	if _, err := m.Get(ctx, novel.UserID, novel.ID); err != nil {
		return Novel{}, err
	}
	m.novels[novel.ID] = novel
	return novel, nil
}

func (m *mockRepository) Delete(ctx context.Context, userID, id int64) error {
	if _, err := m.Get(ctx, userID, id); err != nil {
		return err
	}
	delete(m.novels, id)
	return nil
}

type auditSpy struct {
	logs []shared.AuditLog
}

func (a *auditSpy) Record(_ context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

type statsSpy struct {
	bumped []int64
}

func (s *statsSpy) Bump(_ context.Context, userID int64) error {
	s.bumped = append(s.bumped, userID)
	return nil
}

func newService() (*Service, *mockRepository, *auditSpy, *statsSpy) {
	repo := newMockRepository()
	audit := &auditSpy{}
	stats := &statsSpy{}
	return NewService(repo, shared.ChangeRecorder{Audit: audit, Stats: stats}), repo, audit, stats
}

func TestCreateDefaultsAndRecordsChange(t *testing.T) {
	svc, _, audit, stats := newService()

	novel, err := svc.Create(context.Background(), 7, NovelRequest{Title: "  The Long Night  "})
	require.NoError(t, err)
	assert.Equal(t, "The Long Night", novel.Title)
	assert.Equal(t, StatusPlanning, novel.Status)
	assert.Equal(t, int64(7), novel.UserID)

	require.Len(t, audit.logs, 1)
	assert.Equal(t, shared.ActionCreate, audit.logs[0].Action)
	assert.Equal(t, novel.ID, audit.logs[0].EntityID)
	assert.Equal(t, []int64{7}, stats.bumped)
}

func TestOtherUsersNovelIsNotFound(t *testing.T) {
	svc, _, audit, _ := newService()
	ctx := context.Background()

	novel, err := svc.Create(ctx, 1, NovelRequest{Title: "Mine"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, 2, novel.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	_, err = svc.Update(ctx, 2, novel.ID, NovelRequest{Title: "Stolen"})
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, 2, novel.ID), shared.ErrNotFound)
	assert.ErrorIs(t, svc.Owned(ctx, 2, novel.ID), shared.ErrNotFound)
	assert.NoError(t, svc.Owned(ctx, 1, novel.ID))
	assert.Len(t, audit.logs, 1)
}

func TestListPaginates(t *testing.T) {
	svc, _, _, _ := newService()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := svc.Create(ctx, 1, NovelRequest{Title: "Book"})
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, 2, NovelRequest{Title: "Book"})
	require.NoError(t, err)

	resp, err := svc.List(ctx, 1, ListRequest{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, resp.Novels, 2)
	assert.Equal(t, 5, resp.Pagination.Total)
	assert.Equal(t, 3, resp.Pagination.TotalPages)
	assert.Equal(t, int64(3), resp.Novels[0].ID)

	resp, err = svc.List(ctx, 1, ListRequest{Page: 9, Limit: 2})
	require.NoError(t, err)
	assert.NotNil(t, resp.Novels)
	assert.Empty(t, resp.Novels)
}

func TestProgress(t *testing.T) {
	assert.Equal(t, 0.0, Novel{WordCount: 10}.Progress())
	assert.Equal(t, 0.5, Novel{WordCount: 500, TargetWordCount: 1000}.Progress())
	assert.Equal(t, 1.0, Novel{WordCount: 5000, TargetWordCount: 1000}.Progress())
}

func newTestRouter(svc *Service, caller shared.Identity) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithIdentity(req.Context(), caller)))
		})
	})
	NewHandler(nil, svc).MountRoutes(r)
	return r
}

func TestHandlerCreateAndValidate(t *testing.T) {
	svc, _, _, _ := newService()
	router := newTestRouter(svc, shared.Identity{UserID: 4, Role: shared.RoleUser})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/novels", strings.NewReader(`{"title":"Dune","status":"drafting","target_word_count":90000}`)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"status":"drafting"`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/novels", strings.NewReader(`{"title":"","status":"abandoned"}`)))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"title":"is required"`)
	assert.Contains(t, rec.Body.String(), `"status"`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/novels/abc", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/novels/99", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/novels/1", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
