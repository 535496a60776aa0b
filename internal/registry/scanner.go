package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"sampled/internal/common/fsutil"
)

// Fingerprint is one recorded prompt inside a partition: the sha256 hex
// of the prompt plus how many numbered response files exist for it.
type Fingerprint struct {
	Hash  string
	Count int
	// Gaps lists positions in [0,max] with no file. A recorded sequence
	// is replayable only when Gaps is empty.
	Gaps []int
}

// Partition is one <alias>_<temperature> directory under the cache root.
type Partition struct {
	Alias        string
	Temperature  string
	Dir          string
	Fingerprints []Fingerprint
}

// Samples returns the total number of recorded responses in the partition.
func (p Partition) Samples() int {
	n := 0
	for _, f := range p.Fingerprints {
		n += f.Count
	}
	return n
}

// Scan walks a cache root and builds a registry of recorded partitions.
// Directories that do not match the <alias>_<temperature> naming are
// skipped; a missing root yields an empty registry.
func Scan(root string) ([]Partition, error) {
	base, err := fsutil.ExpandHome(root)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var parts []Partition
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		alias, temp, ok := splitPartition(e.Name())
		if !ok {
			continue
		}
		dir := filepath.Join(abs, e.Name())
		fps, err := scanFingerprints(dir)
		if err != nil {
			return nil, err
		}
		parts = append(parts, Partition{
			Alias:        alias,
			Temperature:  temp,
			Dir:          dir,
			Fingerprints: fps,
		})
	}
	sort.Slice(parts, func(i, j int) bool {
		if parts[i].Alias != parts[j].Alias {
			return parts[i].Alias < parts[j].Alias
		}
		return parts[i].Temperature < parts[j].Temperature
	})
	return parts, nil
}

// Verify returns one error per fingerprint whose numbered files are not
// contiguous from 0. An empty result means every recorded sequence replays.
func Verify(parts []Partition) []error {
	var errs []error
	for _, p := range parts {
		for _, f := range p.Fingerprints {
			if len(f.Gaps) == 0 {
				continue
			}
			errs = append(errs, fmt.Errorf("%s_%s/%s: missing indices %v",
				p.Alias, p.Temperature, f.Hash, f.Gaps))
		}
	}
	return errs
}

// splitPartition separates "<alias>_<temperature>" at the last underscore.
// Aliases may themselves contain underscores; temperatures never do.
func splitPartition(name string) (alias, temp string, ok bool) {
	i := strings.LastIndex(name, "_")
	if i <= 0 || i == len(name)-1 {
		return "", "", false
	}
	temp = name[i+1:]
	if _, err := strconv.ParseFloat(temp, 64); err != nil {
		return "", "", false
	}
	return name[:i], temp, true
}

func scanFingerprints(dir string) ([]Fingerprint, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var fps []Fingerprint
	for _, e := range entries {
		if !e.IsDir() || !isHexHash(e.Name()) {
			continue
		}
		indices, err := numberedIndices(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		fps = append(fps, Fingerprint{
			Hash:  e.Name(),
			Count: len(indices),
			Gaps:  findGaps(indices),
		})
	}
	sort.Slice(fps, func(i, j int) bool { return fps[i].Hash < fps[j].Hash })
	return fps, nil
}

func numberedIndices(dir string) ([]int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var indices []int
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		stem, ok := strings.CutSuffix(e.Name(), ".md")
		if !ok {
			continue
		}
		i, err := strconv.Atoi(stem)
		if err != nil || i < 0 {
			continue
		}
		indices = append(indices, i)
	}
	sort.Ints(indices)
	return indices, nil
}

func findGaps(indices []int) []int {
	var gaps []int
	next := 0
	for _, i := range indices {
		for next < i {
			gaps = append(gaps, next)
			next++
		}
		next = i + 1
	}
	return gaps
}

func isHexHash(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
