package perf

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/novelforge/novelforge/internal/chapters"
	"github.com/novelforge/novelforge/internal/characters"
	"github.com/novelforge/novelforge/internal/generation"
	jobmetrics "github.com/novelforge/novelforge/internal/jobs"
	"github.com/novelforge/novelforge/internal/novels"
	"github.com/novelforge/novelforge/internal/worldnotes"
	"github.com/novelforge/novelforge/jobs"
)

type story struct{}

func (story) Get(ctx context.Context, userID, id int64) (novels.Novel, error) {
	return novels.Novel{ID: id, UserID: userID, Title: "Bench", Genre: "Mystery", Synopsis: "A quiet town."}, nil
}

type storyChapters struct{}

func (storyChapters) List(ctx context.Context, userID, novelID int64) ([]chapters.Chapter, error) {
	out := make([]chapters.Chapter, 12)
	for i := range out {
		out[i] = chapters.Chapter{ID: int64(i + 1), Title: "Part", Summary: "Things happen.", Order: i + 1, Content: strings.Repeat("word ", 800)}
	}
	return out, nil
}

func (storyChapters) AppendDraft(ctx context.Context, userID, novelID int64, title, content string) (chapters.Chapter, error) {
	return chapters.Chapter{ID: 99, NovelID: novelID, Title: title, Content: content}, nil
}

type storyCast struct{}

func (storyCast) List(ctx context.Context, userID, novelID int64) ([]characters.Character, error) {
	return []characters.Character{{Name: "Iris", Role: characters.RoleProtagonist, Description: "Detective."}}, nil
}

type storyNotes struct{}

func (storyNotes) List(ctx context.Context, userID, novelID int64, req worldnotes.ListRequest) ([]worldnotes.Note, error) {
	return []worldnotes.Note{{Title: "Harbor", Category: worldnotes.CategoryLocation, Content: "Fog every morning."}}, nil
}

// flakyCompleter fails every failEvery-th call with a retryable provider error.
type flakyCompleter struct {
	calls     atomic.Int64
	delay     time.Duration
	failEvery int64
}

func (f *flakyCompleter) Complete(ctx context.Context, p generation.Prompt) (generation.Completion, error) {
	n := f.calls.Add(1)
	time.Sleep(f.delay)
	if f.failEvery > 0 && n%f.failEvery == 0 {
		return generation.Completion{}, &generation.ProviderError{Status: 503, Message: "overloaded"}
	}
	return generation.Completion{Text: "Title: Fog\n\n" + strings.Repeat("The fog rolled in. ", 50)}, nil
}

func newJob(metrics *jobmetrics.Metrics, completer generation.Completer) *generation.Job {
	return &generation.Job{
		Sources:   generation.Sources{Novels: story{}, Chapters: storyChapters{}, Characters: storyCast{}, Notes: storyNotes{}},
		Completer: completer,
		Drafts:    storyChapters{},
		Metrics:   metrics,
	}
}

func TestGenerationJobThroughputAndReliability(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)
	job := newJob(metrics, &flakyCompleter{delay: 5 * time.Millisecond, failEvery: 20})

	task, err := jobs.NewChapterGenerateTask(jobs.ChapterGeneratePayload{UserID: 1, NovelID: 2, TargetWords: 800})
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	failures := 0
	for i := 0; i < 60; i++ {
		if err := job.Handle(context.Background(), asynq.NewTask(task.Type(), task.Payload())); err != nil {
			failures++
		}
	}
	if failures != 3 {
		t.Fatalf("expected 3 injected failures, got %d", failures)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	labels := map[string]string{"job": jobs.TaskChapterGenerate}
	success := metricValue(t, families, "novelforge_jobs_total", map[string]string{"job": jobs.TaskChapterGenerate, "status": "success"})
	failure := metricValue(t, families, "novelforge_jobs_total", map[string]string{"job": jobs.TaskChapterGenerate, "status": "failure"})
	if ratio := success / (success + failure); ratio < 0.9 {
		t.Fatalf("generation success ratio too low: %f", ratio)
	}
	if mean := histogramMean(t, families, "novelforge_job_duration_seconds", labels); mean > 0.5 {
		t.Fatalf("generation duration above budget: %f", mean)
	}
	if words := metricValue(t, families, "novelforge_generated_words_total", nil); words != success*200 {
		t.Fatalf("expected %v generated words, got %v", success*200, words)
	}
}

func BenchmarkBuildPrompt(b *testing.B) {
	sc, err := generation.Sources{Novels: story{}, Chapters: storyChapters{}, Characters: storyCast{}, Notes: storyNotes{}}.Load(context.Background(), 1, 2)
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = generation.BuildPrompt(sc, "Raise the stakes.", 1500)
	}
}

func metricValue(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) {
				if fam.GetType() == dto.MetricType_COUNTER {
					return metric.GetCounter().GetValue()
				}
				if fam.GetType() == dto.MetricType_GAUGE {
					return metric.GetGauge().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func histogramMean(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) {
				hist := metric.GetHistogram()
				if hist == nil || hist.GetSampleCount() == 0 {
					t.Fatalf("histogram %s missing samples", name)
				}
				return hist.GetSampleSum() / float64(hist.GetSampleCount())
			}
		}
	}
	t.Fatalf("histogram %s with labels %v not found", name, labels)
	return 0
}

func hasLabels(metric *dto.Metric, labels map[string]string) bool {
	for _, lp := range metric.GetLabel() {
		if val, ok := labels[lp.GetName()]; ok {
			if lp.GetValue() != val {
				return false
			}
		}
	}
	for key := range labels {
		found := false
		for _, lp := range metric.GetLabel() {
			if lp.GetName() == key {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
