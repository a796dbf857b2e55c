// Package jobs decodes the YAML job file holding the presets of every
// command.
package jobs

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/clozekit/pkg/convert"
	"github.com/aretw0/clozekit/pkg/group"
	"github.com/aretw0/clozekit/pkg/hint"
	"github.com/aretw0/clozekit/pkg/pinyin"
)

//go:embed defaults.yaml
var defaults []byte

// ErrUnknownJob is returned when a preset name is not in the file.
var ErrUnknownJob = errors.New("unknown job")

// How a hint job selects its groups.
const (
	RunQuery   = ""
	RunGroups  = "groups"
	RunDecades = "decades"
	RunQueries = "queries"
)

// HintJob is a hint preset.
type HintJob struct {
	hint.Options `yaml:",inline"`
	Run          string   `yaml:"run"`
	Queries      []string `yaml:"queries"`
	DecadeField  string   `yaml:"decade_field"`
	Centuries    []string `yaml:"centuries"`
}

// File is a job file.
type File struct {
	Convert map[string][]convert.Options `yaml:"convert"`
	Hint    map[string]HintJob           `yaml:"hint"`
	Group   map[string]group.Options     `yaml:"group"`
	Pinyin  map[string]pinyin.Options    `yaml:"pinyin"`
}

// Decode reads a job file. Unknown keys are errors.
func Decode(r io.Reader) (File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return File{}, fmt.Errorf("jobs: %w", err)
	}
	return f, nil
}

// Load reads the job file at path.
func Load(path string) (File, error) {
	f, err := os.Open(path)
	if err != nil {
		return File{}, err
	}
	defer f.Close()
	jobs, err := Decode(f)
	if err != nil {
		return File{}, fmt.Errorf("%s: %w", path, err)
	}
	return jobs, nil
}

// LoadOrDefault reads path, falling back to the built-in presets when the
// file does not exist.
func LoadOrDefault(path string) (File, bool, error) {
	f, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		f, err = Defaults()
		return f, true, err
	}
	return f, false, err
}

// Defaults returns the built-in presets.
func Defaults() (File, error) {
	return Decode(bytes.NewReader(defaults))
}

// DefaultsYAML returns the built-in job file.
func DefaultsYAML() []byte {
	return append([]byte(nil), defaults...)
}

// Conversion returns a convert preset.
func (f File) Conversion(name string) ([]convert.Options, error) {
	jobs, ok := f.Convert[name]
	if !ok {
		return nil, unknown("convert", name, keys(f.Convert))
	}
	return jobs, nil
}

// HintPreset returns a hint preset.
func (f File) HintPreset(name string) (HintJob, error) {
	job, ok := f.Hint[name]
	if !ok {
		return HintJob{}, unknown("hint", name, keys(f.Hint))
	}
	switch job.Run {
	case RunQuery, RunGroups, RunQueries:
	case RunDecades:
		if job.DecadeField == "" || len(job.Centuries) == 0 {
			return HintJob{}, fmt.Errorf("jobs: hint %q: decades need decade_field and centuries", name)
		}
	default:
		return HintJob{}, fmt.Errorf("jobs: hint %q: unknown run %q", name, job.Run)
	}
	return job, nil
}

// GroupPreset returns a group preset.
func (f File) GroupPreset(name string) (group.Options, error) {
	job, ok := f.Group[name]
	if !ok {
		return group.Options{}, unknown("group", name, keys(f.Group))
	}
	return job, nil
}

// PinyinPreset returns a pinyin preset.
func (f File) PinyinPreset(name string) (pinyin.Options, error) {
	job, ok := f.Pinyin[name]
	if !ok {
		return pinyin.Options{}, unknown("pinyin", name, keys(f.Pinyin))
	}
	return job, nil
}

// RunQueries returns the queries a hint job runs over, for the runs that
// do not iterate group IDs.
func (j HintJob) RunQueries() []string {
	switch j.Run {
	case RunDecades:
		return hint.DecadeQueries(j.DecadeField, j.Centuries)
	case RunQueries:
		return j.Queries
	default:
		return []string{j.Query}
	}
}

func unknown(kind, name string, names []string) error {
	return fmt.Errorf("%w: %s %q (available: %s)", ErrUnknownJob, kind, name, strings.Join(names, ", "))
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
