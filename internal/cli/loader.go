package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"chronicle/internal/fact"
	"chronicle/internal/timeline"
)

// QueryDef is one named timeline query as declared in a CUE file. The
// query files carry only data; CUE's own constraint syntax gives them
// validation for free before any query runs.
type QueryDef struct {
	Name             string   `json:"name"`
	Entity           string   `json:"entity"`
	Fields           []string `json:"fields,omitempty"`
	Dimension        string   `json:"dimension,omitempty"`
	Start            string   `json:"start,omitempty"`
	End              string   `json:"end,omitempty"`
	SnapshotInterval string   `json:"snapshotInterval,omitempty"`
	MaxEvents        int      `json:"maxEvents,omitempty"`
	Export           string   `json:"export,omitempty"`
}

// LoadError is a query-file loading failure with a stable code.
type LoadError struct {
	Code    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for query file loading.
const (
	ErrCodeNotFound    = "E001" // Path not found
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeBuildFailed = "E005" // CUE build failed
	ErrCodeBadQuery    = "E006" // Query definition invalid
)

// LoadQueries loads every query definition under the "query" field of the
// CUE files in dir. Queries come back in label order, which CUE keeps
// deterministic.
func LoadQueries(dir string) ([]QueryDef, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("query directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing query directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	cueFiles, err := findCUEFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(cueFiles) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}

	queriesVal := value.LookupPath(cue.ParsePath("query"))
	if !queriesVal.Exists() {
		return nil, &LoadError{Code: ErrCodeBadQuery, Message: "no \"query\" field found in query files"}
	}

	var defs []QueryDef
	iter, err := queriesVal.Fields()
	if err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("iterating queries: %v", err)}
	}
	for iter.Next() {
		var def QueryDef
		if err := iter.Value().Decode(&def); err != nil {
			return nil, &LoadError{Code: ErrCodeBadQuery, Message: fmt.Sprintf("query.%s: %v", iter.Label(), err)}
		}
		def.Name = iter.Label()
		defs = append(defs, def)
	}

	if len(defs) == 0 {
		return nil, &LoadError{Code: ErrCodeBadQuery, Message: "no queries found in query files"}
	}
	return defs, nil
}

// Filters converts a query definition into executable timeline filters.
func (q QueryDef) Filters() (timeline.Filters, error) {
	filters := timeline.Filters{
		EntityID:  q.Entity,
		Fields:    q.Fields,
		MaxEvents: q.MaxEvents,
	}

	if q.Dimension != "" {
		dim, err := fact.ParseDimension(q.Dimension)
		if err != nil {
			return timeline.Filters{}, fmt.Errorf("query %s: %w", q.Name, err)
		}
		filters.Dimension = dim
	}
	if q.Start != "" {
		t, err := time.Parse(time.RFC3339, q.Start)
		if err != nil {
			return timeline.Filters{}, fmt.Errorf("query %s: invalid start: %w", q.Name, err)
		}
		t = t.UTC()
		filters.Start = &t
	}
	if q.End != "" {
		t, err := time.Parse(time.RFC3339, q.End)
		if err != nil {
			return timeline.Filters{}, fmt.Errorf("query %s: invalid end: %w", q.Name, err)
		}
		t = t.UTC()
		filters.End = &t
	}
	if q.SnapshotInterval != "" {
		d, err := time.ParseDuration(q.SnapshotInterval)
		if err != nil {
			return timeline.Filters{}, fmt.Errorf("query %s: invalid snapshotInterval: %w", q.Name, err)
		}
		filters.SnapshotInterval = d
	}
	return filters, nil
}

// findCUEFiles walks the directory and returns all .cue file paths.
func findCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
