package statefiles

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hochfrequenz/claude-exec-monitor/internal/domain"
)

// File names the workflow CLI writes inside its state directory
const (
	stateFile    = "state.json"
	queueFile    = "queue.json"
	releasesFile = "releases.json"
	projectFile  = "project.json"
	plansDir     = "plans"
)

// Plan files are issue-<n>.json on current CLI versions; older versions
// wrote issue-<n>.yaml.
var planFileRe = regexp.MustCompile(`^issue-(\d+)\.(json|ya?ml)$`)

// readRawState reads the global state file as an untyped record for the
// mapper. A missing or malformed file yields nil without error: the engine
// treats that as "nothing to show".
func readRawState(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil
	}
	return raw, nil
}

func readQueue(path string) ([]domain.QueueItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var items []domain.QueueItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parsing queue file: %w", err)
	}
	return items, nil
}

func readReleases(path string) ([]domain.Release, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var releases []domain.Release
	if err := json.Unmarshal(data, &releases); err != nil {
		return nil, fmt.Errorf("parsing releases file: %w", err)
	}
	return releases, nil
}

// readPlan parses a plan file, picking the decoder by extension
func readPlan(path string) (*domain.ExecutionPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var plan domain.ExecutionPlan
	if strings.HasSuffix(path, ".json") {
		if err := json.Unmarshal(data, &plan); err != nil {
			return nil, fmt.Errorf("parsing plan %s: %w", filepath.Base(path), err)
		}
	} else {
		if err := yaml.Unmarshal(data, &plan); err != nil {
			return nil, fmt.Errorf("parsing plan %s: %w", filepath.Base(path), err)
		}
	}
	return &plan, nil
}

// findPlanFile returns the on-disk plan path for an issue, preferring the
// JSON form the current CLI writes
func findPlanFile(dir string, issue int) string {
	for _, ext := range []string{".json", ".yaml", ".yml"} {
		path := filepath.Join(dir, fmt.Sprintf("issue-%d%s", issue, ext))
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// planIssueNumber extracts the issue number from a plan file name, or -1
func planIssueNumber(name string) int {
	m := planFileRe.FindStringSubmatch(name)
	if m == nil {
		return -1
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return -1
	}
	return n
}

// readProjectMarker reads the path from the CLI's switch-completed marker
func readProjectMarker(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	var marker struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(data, &marker); err != nil {
		return "", fmt.Errorf("parsing project marker: %w", err)
	}
	return marker.Path, nil
}
