package manifest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"
)

// hashWorkers bounds concurrent file hashing.
const hashWorkers = 8

// hashFile returns the lowercase hex SHA-256 and size of a file.
func hashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// hashTree hashes every regular file under root, sorted by slash-separated
// relative path. skip excludes paths. A missing root yields an empty list
// and a warning.
func hashTree(ctx context.Context, root string, skip func(rel string) bool, warn io.Writer) ([]FileEntry, error) {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		warnf(warn, "directory not found: %s", root)
		return []FileEntry{}, nil
	}

	var rels []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if skip != nil && skip(rel) {
			return nil
		}
		rels = append(rels, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("manifest: walk %s: %w", root, err)
	}
	sort.Strings(rels)

	entries := make([]FileEntry, len(rels))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(hashWorkers)
	for i, rel := range rels {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			sum, size, err := hashFile(filepath.Join(root, filepath.FromSlash(rel)))
			if err != nil {
				return fmt.Errorf("manifest: hash %s: %w", rel, err)
			}
			entries[i] = FileEntry{Path: rel, SHA256: sum, SizeBytes: size}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}

// hashTools hashes the named tools that exist in dir, in the order given.
func hashTools(ctx context.Context, dir string, names []string, warn io.Writer) ([]ToolEntry, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		warnf(warn, "tools directory not found: %s", dir)
		return []ToolEntry{}, nil
	}

	found := make([]*ToolEntry, len(names))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(hashWorkers)
	for i, name := range names {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err != nil {
				return nil
			}
			sum, size, err := hashFile(path)
			if err != nil {
				return fmt.Errorf("manifest: hash %s: %w", name, err)
			}
			found[i] = &ToolEntry{Name: name, SHA256: sum, SizeBytes: size}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tools := []ToolEntry{}
	for _, t := range found {
		if t != nil {
			tools = append(tools, *t)
		}
	}
	return tools, nil
}
