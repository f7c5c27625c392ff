package batch

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/kozan-lab/landgain/internal/model"
)

// Checkpoint is the on-disk record of a batch run: one ordered entry per
// processed entity, keyed by securities code. It is rewritten wholesale after
// every entity so a crash loses at most the entity in flight.
type Checkpoint struct {
	path    string
	results []model.EntityResult
	index   map[string]int
}

// LoadCheckpoint reads the checkpoint at path. A missing file yields an empty
// checkpoint.
func LoadCheckpoint(path string) (*Checkpoint, error) {
	cp := &Checkpoint{path: path, index: make(map[string]int)}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cp, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "batch: read checkpoint %s", path)
	}

	if err := json.Unmarshal(raw, &cp.results); err != nil {
		return nil, eris.Wrapf(err, "batch: parse checkpoint %s", path)
	}
	for i, r := range cp.results {
		cp.index[r.Entity.Code] = i
	}
	return cp, nil
}

// Results returns the checkpointed results in processing order.
func (c *Checkpoint) Results() []model.EntityResult { return c.results }

// Get returns the stored result for a securities code.
func (c *Checkpoint) Get(code string) (model.EntityResult, bool) {
	i, ok := c.index[code]
	if !ok {
		return model.EntityResult{}, false
	}
	return c.results[i], true
}

// Record stores or replaces the result for its entity, keeping one entry per
// securities code, and persists the whole checkpoint.
func (c *Checkpoint) Record(result model.EntityResult) error {
	if i, ok := c.index[result.Entity.Code]; ok {
		c.results[i] = result
	} else {
		c.index[result.Entity.Code] = len(c.results)
		c.results = append(c.results, result)
	}
	return c.save()
}

// save writes the full result array through a temp file and rename, so a
// crash mid-write never leaves a truncated checkpoint.
func (c *Checkpoint) save() error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return eris.Wrap(err, "batch: create checkpoint dir")
	}

	raw, err := json.MarshalIndent(c.results, "", "  ")
	if err != nil {
		return eris.Wrap(err, "batch: marshal checkpoint")
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return eris.Wrap(err, "batch: write checkpoint")
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return eris.Wrap(err, "batch: replace checkpoint")
	}
	return nil
}
