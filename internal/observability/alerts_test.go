package observability

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

type alertRule struct {
	Alert       string            `yaml:"alert"`
	Expr        string            `yaml:"expr"`
	For         string            `yaml:"for"`
	Labels      map[string]string `yaml:"labels"`
	Annotations map[string]string `yaml:"annotations"`
}

type alertGroup struct {
	Name  string      `yaml:"name"`
	Rules []alertRule `yaml:"rules"`
}

type alertSpec struct {
	Groups []alertGroup `yaml:"groups"`
}

func TestAlertRulesReferenceExportedMetrics(t *testing.T) {
	path := filepath.Join("..", "..", "deploy", "prometheus", "alerts", "novelforge.yml")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read alert file: %v", err)
	}

	var spec alertSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		t.Fatalf("failed to unmarshal alert file: %v", err)
	}
	if len(spec.Groups) == 0 {
		t.Fatal("expected at least one alert group")
	}

	expected := map[string]string{
		"NovelForgeHighErrorRate":       "novelforge_http_requests_total",
		"NovelForgeGenerationFailures":  "novelforge_jobs_failures_total",
		"NovelForgeChapterSaveFailures": "novelforge_chapter_saves_total",
	}
	found := make(map[string]alertRule)
	for _, group := range spec.Groups {
		for _, rule := range group.Rules {
			found[rule.Alert] = rule
		}
	}
	for name, metric := range expected {
		rule, ok := found[name]
		if !ok {
			t.Fatalf("missing alert %s", name)
		}
		if !strings.Contains(rule.Expr, metric) {
			t.Fatalf("alert %s must reference %s, got %q", name, metric, rule.Expr)
		}
		if rule.Labels["severity"] == "" {
			t.Fatalf("alert %s missing severity label", name)
		}
		if rule.Annotations["summary"] == "" {
			t.Fatalf("alert %s missing summary annotation", name)
		}
	}
}
