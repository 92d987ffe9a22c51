// Package checkpoint lays out per-run directories of saved policy state and
// finds the newest one to resume from.
package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"gridpolicy/policy"
)

const (
	// RunDirLayout names run directories; it sorts lexicographically by time.
	RunDirLayout = "20060102_150405"

	WeightsFile   = "latest_weights.json"
	IterationFile = "checkpoint_iteration.txt"
	RunFile       = "run.json"

	version = 1
)

var ErrNoCheckpoint = errors.New("no checkpoint found")

// RunInfo is written once to run.json when a run directory is created.
type RunInfo struct {
	ID      string    `json:"run_id"`
	Started time.Time `json:"started"`
	Version int       `json:"version"`
}

// Store writes checkpoints into one run directory.
type Store struct {
	dir  string
	info RunInfo
}

// NewStore creates {root}/{now as 20060102_150405}/ and its run.json.
func NewStore(root string, now time.Time) (*Store, error) {
	dir := filepath.Join(root, now.Format(RunDirLayout))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run dir: %w", err)
	}
	info := RunInfo{ID: uuid.NewString(), Started: now.UTC(), Version: version}
	b, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := writeAtomic(filepath.Join(dir, RunFile), b); err != nil {
		return nil, fmt.Errorf("write run info: %w", err)
	}
	return &Store{dir: dir, info: info}, nil
}

func (s *Store) Dir() string         { return s.dir }
func (s *Store) Info() RunInfo       { return s.info }
func (s *Store) WeightsPath() string { return filepath.Join(s.dir, WeightsFile) }

// Save writes the full policy state, then the completed iteration count.
func (s *Store) Save(st *policy.State, iteration int) error {
	if err := st.SaveToFile(s.WeightsPath()); err != nil {
		return err
	}
	if err := writeAtomic(filepath.Join(s.dir, IterationFile), []byte(strconv.Itoa(iteration)+"\n")); err != nil {
		return fmt.Errorf("write iteration: %w", err)
	}
	return nil
}

func writeAtomic(path string, b []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path) // atomic replace
}

// ReadRunInfo reads run.json from dir.
func ReadRunInfo(dir string) (RunInfo, error) {
	var info RunInfo
	b, err := os.ReadFile(filepath.Join(dir, RunFile))
	if err != nil {
		return info, err
	}
	err = json.Unmarshal(b, &info)
	return info, err
}

// LatestRunDir returns the newest run directory under root that is dated no
// later than today and holds a weights file.
func LatestRunDir(root string, today time.Time) (string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNoCheckpoint
		}
		return "", fmt.Errorf("list %s: %w", root, err)
	}
	y, m, d := today.Date()
	cutoff := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		t, err := time.Parse(RunDirLayout, e.Name())
		if err != nil || !t.Before(cutoff) {
			continue
		}
		if _, err := os.Stat(filepath.Join(root, e.Name(), WeightsFile)); err != nil {
			continue
		}
		names = append(names, e.Name())
	}
	if len(names) == 0 {
		return "", ErrNoCheckpoint
	}
	sort.Strings(names)
	return filepath.Join(root, names[len(names)-1]), nil
}

// ReadIteration returns the completed iteration count saved in dir.
func ReadIteration(dir string) (int, error) {
	b, err := os.ReadFile(filepath.Join(dir, IterationFile))
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", IterationFile, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative iteration %d in %s", n, IterationFile)
	}
	return n, nil
}

// Resumed is the outcome of Resume.
type Resumed struct {
	State *policy.State
	Start int    // completed iterations
	Dir   string // empty for a fresh start
}

// Resume loads the newest checkpoint under root. It never fails: on any
// problem it returns a fresh state and the cause, which callers log.
func Resume(root string, today time.Time, opts policy.Options) (Resumed, error) {
	fresh := Resumed{State: policy.New(opts)}
	dir, err := LatestRunDir(root, today)
	if err != nil {
		return fresh, err
	}
	st, err := policy.LoadFromFile(filepath.Join(dir, WeightsFile), opts)
	if err != nil {
		return fresh, err
	}
	start, err := ReadIteration(dir)
	if err != nil {
		// weights alone are enough, the state knows how many iterations it has seen
		start = st.IterationCount()
	}
	return Resumed{State: st, Start: start, Dir: dir}, nil
}
