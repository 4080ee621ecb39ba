package ingest

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// LocalFetcher reads statement files from a directory tree mirroring the
// bucket layout. Used in tests and for reprocessing downloaded batches.
type LocalFetcher struct {
	Root string
}

var _ DocumentFetcher = (*LocalFetcher)(nil)

func (f *LocalFetcher) List(_ context.Context, prefix string) ([]string, error) {
	base := filepath.Join(f.Root, filepath.FromSlash(prefix))
	var refs []string
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isStatementFile(path) {
			return nil
		}
		rel, err := filepath.Rel(f.Root, path)
		if err != nil {
			return err
		}
		refs = append(refs, filepath.ToSlash(rel))
		return nil
	})
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sort.Strings(refs)
	return refs, nil
}

func (f *LocalFetcher) Fetch(_ context.Context, ref string) ([]byte, error) {
	return os.ReadFile(filepath.Join(f.Root, filepath.FromSlash(ref)))
}
