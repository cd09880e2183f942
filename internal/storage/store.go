package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/keplersim/internal/dynamo"
	"github.com/san-kum/keplersim/internal/physics"
)

var ErrNotFound = errors.New("run not found")

const (
	metadataFile = "metadata.json"
	statesFile   = "states.csv"
)

var csvHeader = []string{"time", "q1", "q2", "p1", "p2", "energy", "angular_momentum"}

type Store struct {
	baseDir string
	now     func() time.Time
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir, now: time.Now}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir(runID string) string {
	return filepath.Join(s.baseDir, runID)
}

type RunMetadata struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Timestamp    time.Time          `json:"timestamp"`
	Integrator   string             `json:"integrator"`
	Projection   string             `json:"projection"`
	Adaptive     bool               `json:"adaptive"`
	Dt           float64            `json:"dt"`
	Duration     float64            `json:"duration"`
	InitState    []float64          `json:"init_state"`
	Elements     *physics.Elements  `json:"elements,omitempty"`
	Stats        dynamo.Stats       `json:"stats"`
	EnergyDrift  float64            `json:"energy_drift"`
	AngularDrift float64            `json:"angular_drift"`
	Failures     int                `json:"failures"`
	Metrics      map[string]float64 `json:"metrics"`
}

// Describe fills the result-derived fields of meta.
func Describe(meta RunMetadata, result *dynamo.Result) RunMetadata {
	if len(result.States) > 0 {
		meta.InitState = result.States[0].Clone()
		if el, err := physics.ElementsOf(result.States[0]); err == nil {
			meta.Elements = &el
		}
	}
	meta.Stats = result.Stats
	meta.EnergyDrift = finite(result.EnergyDrift)
	meta.AngularDrift = finite(result.AngularDrift)
	meta.Failures = len(result.Errors)
	meta.Metrics = make(map[string]float64, len(result.Metrics))
	for k, v := range result.Metrics {
		meta.Metrics[k] = finite(v)
	}
	return meta
}

// finite clamps values JSON cannot represent.
func finite(v float64) float64 {
	switch {
	case math.IsNaN(v), math.IsInf(v, 1):
		return math.MaxFloat64
	case math.IsInf(v, -1):
		return -math.MaxFloat64
	}
	return v
}

// Save writes metadata.json and states.csv into a new run directory and
// returns the run ID.
func (s *Store) Save(meta RunMetadata, result *dynamo.Result) (string, error) {
	meta = Describe(meta, result)
	meta.Timestamp = s.now()
	if meta.Name == "" {
		meta.Name = "run"
	}

	runID, runDir, err := s.newRunDir(meta.Name, meta.Timestamp)
	if err != nil {
		return "", err
	}
	meta.ID = runID

	if err := writeRun(runDir, meta, result); err != nil {
		if rmErr := os.RemoveAll(runDir); rmErr != nil {
			return "", fmt.Errorf("%w (cleanup: %v)", err, rmErr)
		}
		return "", err
	}
	return runID, nil
}

func writeRun(runDir string, meta RunMetadata, result *dynamo.Result) error {
	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return err
	}

	f, err := os.Create(filepath.Join(runDir, statesFile))
	if err != nil {
		return err
	}
	defer f.Close()
	if err := WriteCSV(f, result.Times, result.States); err != nil {
		return err
	}
	return f.Close()
}

func (s *Store) newRunDir(name string, ts time.Time) (string, string, error) {
	if err := s.Init(); err != nil {
		return "", "", err
	}
	base := fmt.Sprintf("%s_%d", name, ts.Unix())
	for i := 0; ; i++ {
		runID := base
		if i > 0 {
			runID = fmt.Sprintf("%s_%d", base, i)
		}
		dir := s.Dir(runID)
		err := os.Mkdir(dir, 0755)
		if err == nil {
			return runID, dir, nil
		}
		if !os.IsExist(err) {
			return "", "", err
		}
	}
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	return f.Close()
}

// WriteCSV writes one row per state with the invariants H and L appended.
func WriteCSV(w io.Writer, times []float64, states []dynamo.State) error {
	if len(times) != len(states) {
		return fmt.Errorf("%d times for %d states", len(times), len(states))
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	row := make([]string, len(csvHeader))
	for i, x := range states {
		if len(x) != 4 {
			return fmt.Errorf("%w: row %d has %d components", dynamo.ErrDimensionMismatch, i, len(x))
		}
		q, p := physics.Split(x)
		row[0] = formatFloat(times[i])
		for j, v := range x {
			row[1+j] = formatFloat(v)
		}
		row[5] = formatFloat(physics.H(q, p))
		row[6] = formatFloat(physics.L(q, p))
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// ReadCSV reads a file written by WriteCSV. The invariant columns are
// recomputed by consumers and are not returned.
func ReadCSV(r io.Reader) ([]float64, []dynamo.State, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) < 2 {
		return []float64{}, []dynamo.State{}, nil
	}

	times := make([]float64, 0, len(records)-1)
	states := make([]dynamo.State, 0, len(records)-1)
	for i, record := range records[1:] {
		if len(record) < 5 {
			return nil, nil, fmt.Errorf("line %d: want at least 5 fields, got %d", i+2, len(record))
		}
		vals := make([]float64, 5)
		for j := range vals {
			v, err := strconv.ParseFloat(record[j], 64)
			if err != nil {
				return nil, nil, fmt.Errorf("line %d: %w", i+2, err)
			}
			vals[j] = v
		}
		times = append(times, vals[0])
		states = append(states, dynamo.State(vals[1:]))
	}
	return times, states, nil
}

// List returns the stored runs, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.SliceStable(runs, func(i, j int) bool {
		if runs[i].Timestamp.Equal(runs[j].Timestamp) {
			return runs[i].ID < runs[j].ID
		}
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir(runID), metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("%s: %w", runID, err)
	}
	return &meta, nil
}

// LoadTrajectory reads the stored states of a run.
func (s *Store) LoadTrajectory(runID string) (*dynamo.Result, error) {
	f, err := os.Open(filepath.Join(s.Dir(runID), statesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
		}
		return nil, err
	}
	defer f.Close()

	times, states, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", runID, err)
	}
	return &dynamo.Result{Times: times, States: states, Metrics: map[string]float64{}}, nil
}
