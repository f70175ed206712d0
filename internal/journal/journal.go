// Package journal records batch runs under the output root.
//
// Layout:
//
//	<outputRoot>/.fdsbatch/runs/<run-id>/run.json     run metadata + outcome
//	<outputRoot>/.fdsbatch/runs/<run-id>/pairs.jsonl  one record per pair
//
// run.json writes are atomic and durable (file sync + atomic rename +
// directory sync); pairs.jsonl is append-only. The journal is purely
// observational: the batch's resume mechanism is final-file existence,
// and a journal that cannot be written must never fail the batch, so
// every method on a nil *Journal is a no-op.
package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RunMeta is the persistent description of one batch run.
type RunMeta struct {
	RunID     string    `json:"run_id"`
	CHID      string    `json:"chid"`
	StartT    int       `json:"start_t"`
	EndT      int       `json:"end_t"`
	VarCount  int       `json:"var_count"`
	Groups    []int     `json:"groups"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time,omitzero"`

	// Status is "running", then "succeeded" or "failed".
	Status string `json:"status"`

	Generated int `json:"generated"`
	Skipped   int `json:"skipped"`
}

// PairRecord is one line of pairs.jsonl.
type PairRecord struct {
	Group      int       `json:"group"`
	T          int       `json:"t"`
	State      string    `json:"state"`
	DurationMS int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	Time       time.Time `json:"time"`
}

// Journal is an open run record. Not safe for concurrent use; the batch
// loop is single-threaded by design.
type Journal struct {
	runDir string
	meta   RunMeta
	pairs  *os.File
}

// Open creates a new run directory with a fresh UUID run ID and writes
// the initial run.json with status "running".
func Open(outputRoot string, meta RunMeta) (*Journal, error) {
	if strings.TrimSpace(outputRoot) == "" {
		return nil, errors.New("output root is required")
	}
	meta.RunID = uuid.NewString()
	meta.StartTime = time.Now().UTC()
	meta.Status = "running"

	runDir := filepath.Join(outputRoot, ".fdsbatch", "runs", meta.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating run dir: %w", err)
	}

	j := &Journal{runDir: runDir, meta: meta}
	if err := j.writeMeta(); err != nil {
		return nil, err
	}

	pairs, err := os.OpenFile(filepath.Join(runDir, "pairs.jsonl"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening pairs log: %w", err)
	}
	j.pairs = pairs
	return j, nil
}

// RunID returns the run's UUID, or "" on a nil journal.
func (j *Journal) RunID() string {
	if j == nil {
		return ""
	}
	return j.meta.RunID
}

// RecordPair appends one pair outcome to pairs.jsonl.
func (j *Journal) RecordPair(rec PairRecord) error {
	if j == nil || j.pairs == nil {
		return nil
	}
	if rec.Time.IsZero() {
		rec.Time = time.Now().UTC()
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal pair record: %w", err)
	}
	b = append(b, '\n')
	if _, err := j.pairs.Write(b); err != nil {
		return fmt.Errorf("append pair record: %w", err)
	}
	return nil
}

// Close finalizes the run: rewrites run.json with the terminal status
// and counts, then closes the pair log.
func (j *Journal) Close(status string, generated, skipped int) error {
	if j == nil {
		return nil
	}
	j.meta.Status = status
	j.meta.Generated = generated
	j.meta.Skipped = skipped
	j.meta.EndTime = time.Now().UTC()

	metaErr := j.writeMeta()
	var closeErr error
	if j.pairs != nil {
		closeErr = j.pairs.Close()
		j.pairs = nil
	}
	if metaErr != nil {
		return metaErr
	}
	return closeErr
}

func (j *Journal) writeMeta() error {
	data, err := json.MarshalIndent(j.meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run meta: %w", err)
	}
	data = append(data, '\n')
	if err := writeFileAtomic(filepath.Join(j.runDir, "run.json"), data, 0o644); err != nil {
		return fmt.Errorf("write run meta: %w", err)
	}
	return nil
}

// ListRunIDs returns the run IDs present under the output root, sorted
// lexicographically. A missing journal directory is an empty listing,
// not an error.
func ListRunIDs(outputRoot string) ([]string, error) {
	root := filepath.Join(outputRoot, ".fdsbatch", "runs")
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		ids = append(ids, e.Name())
	}
	sort.Strings(ids)
	return ids, nil
}

// LoadRun reads one run.json back.
func LoadRun(outputRoot, runID string) (RunMeta, error) {
	var meta RunMeta
	if strings.TrimSpace(runID) == "" {
		return meta, errors.New("runID is required")
	}
	path := filepath.Join(outputRoot, ".fdsbatch", "runs", runID, "run.json")
	f, err := os.Open(path)
	if err != nil {
		return meta, err
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	if err := dec.Decode(&meta); err != nil {
		return meta, fmt.Errorf("decode run meta: %w", err)
	}
	return meta, nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return fsyncDir(dir)
}

func fsyncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}
