package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"sampled/internal/common/fsutil"
	"sampled/pkg/sample"
)

// diskStore is the content-addressed on-disk layout:
//
//	<root>/<alias>_<temperature>/<fingerprint>/<index>.md
//
// Numbered files under a fingerprint directory are contiguous from 0.
// The next free index is the count of existing numbered files; this is racy
// under concurrent multi-process writers, which are unsupported by
// convention (single writer per cache root).
type diskStore struct {
	root      string
	partition string
}

func (d *diskStore) promptDir(fingerprint string) string {
	return filepath.Join(d.root, d.partition, fingerprint)
}

// listNumbered returns the *.md files in dir whose stem is an integer,
// sorted by integer value. A missing directory yields an empty list.
func listNumbered(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cache dir: %w", err)
	}
	type numbered struct {
		n    int
		path string
	}
	var files []numbered
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		stem, ok := strings.CutSuffix(e.Name(), ".md")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(stem)
		if err != nil {
			continue
		}
		files = append(files, numbered{n: n, path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].n < files[j].n })
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.path
	}
	return out, nil
}

func (d *diskStore) Load(fingerprint string) ([]string, error) {
	paths, err := listNumbered(d.promptDir(fingerprint))
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read cache entry: %w", err)
		}
		out = append(out, string(b))
	}
	return out, nil
}

func (d *diskStore) Store(fingerprint, text string) error {
	dir := d.promptDir(fingerprint)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	existing, err := listNumbered(dir)
	if err != nil {
		return err
	}
	p := filepath.Join(dir, strconv.Itoa(len(existing))+".md")
	if err := os.WriteFile(p, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}

// NewDisk wraps inner with a persistent cache rooted at root, durable
// across process restarts. With replication true the cache is read-only:
// positions beyond what is recorded fail with a cache miss and no upstream
// query is ever issued. Nesting persistent caches (a shared read-only root
// under a private read-write one) is supported.
func NewDisk(inner sample.Sampler, root string, replication bool) (*Cache, error) {
	expanded, err := fsutil.ExpandHome(root)
	if err != nil {
		return nil, err
	}
	store := &diskStore{root: expanded, partition: inner.Spec().Normalize().Partition()}
	return New(inner, store, replication), nil
}
