package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultFileName is the collection file inside a profile directory.
const DefaultFileName = "collection.anki2"

// ConfigFileName marks the directory holding the clozekit configuration.
const ConfigFileName = "clozekit.yaml"

// ErrNoMatch is returned when a collection glob matches no file.
var ErrNoMatch = errors.New("no collection matches the pattern")

// ResolveCollectionPath turns a user path into a collection file. "~" is
// expanded, glob patterns pick their first match, and a path that is not a
// collection or snapshot file gets DefaultFileName appended.
func ResolveCollectionPath(userPath string) (string, error) {
	p := strings.TrimSpace(userPath)
	if p == "" {
		return "", errors.New("empty collection path")
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		p = filepath.Join(home, strings.TrimPrefix(p, "~"))
	}

	if hasMeta(p) {
		matches, err := doublestar.FilepathGlob(p)
		if err != nil {
			return "", fmt.Errorf("collection pattern %q: %w", p, err)
		}
		if len(matches) == 0 {
			return "", fmt.Errorf("%w: %s", ErrNoMatch, p)
		}
		sort.Strings(matches)
		p = matches[0]
	}

	if isSnapshot(p) || strings.HasSuffix(p, ".anki2") {
		return p, nil
	}
	return filepath.Join(p, DefaultFileName), nil
}

func hasMeta(p string) bool {
	return strings.ContainsAny(p, "*?[{")
}

func isSnapshot(p string) bool {
	ext := strings.ToLower(filepath.Ext(p))
	return ext == ".yaml" || ext == ".yml"
}

// FindRoot looks upwards from startDir for a directory holding
// ConfigFileName and returns it.
func FindRoot(startDir string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	dir := abs
	for {
		if hasFile(dir, ConfigFileName) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", fmt.Errorf("%s not found above %s", ConfigFileName, abs)
}

func hasFile(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}
