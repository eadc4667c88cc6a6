package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/hglc/internal/engine"
	"github.com/ppiankov/hglc/internal/sentence"
)

// Compiler turns a sentence file into its canonical JSON sibling:
// dir/name.hgl becomes dir/name.json.
type Compiler struct {
	svc    *engine.Service
	logger *log.Logger
}

// NewCompiler creates a Compiler. A nil logger discards output.
func NewCompiler(svc *engine.Service, logger *log.Logger) *Compiler {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Compiler{svc: svc, logger: logger}
}

// OutputPath returns the canonical JSON path for a source file.
func OutputPath(src string) string {
	return strings.TrimSuffix(src, filepath.Ext(src)) + ".json"
}

// CompileFile compiles the whole file as one sentence and writes the
// canonical bytes next to it. A rejected file has any stale output removed
// so the directory never holds JSON for a sentence that no longer compiles.
func (c *Compiler) CompileFile(ctx context.Context, path string) (*engine.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("watch: read %s: %w", path, err)
	}

	out := OutputPath(path)
	res, err := c.svc.Compile(ctx, engine.SourceWatch, string(data))
	if err != nil {
		var se *sentence.Error
		if errors.As(err, &se) {
			if rmErr := os.Remove(out); rmErr != nil && !os.IsNotExist(rmErr) {
				return nil, fmt.Errorf("watch: remove stale %s: %w", out, rmErr)
			}
		}
		return nil, err
	}

	if err := writeAtomic(out, append(res.Canonical, '\n')); err != nil {
		return nil, err
	}
	return res, nil
}

// Handle is a Handler that logs the outcome of CompileFile.
func (c *Compiler) Handle(ctx context.Context, path string) {
	res, err := c.CompileFile(ctx, path)
	if err != nil {
		c.logger.Printf("%s: %v", path, err)
		return
	}
	note := ""
	if res.Duplicate {
		note = " (duplicate)"
	}
	c.logger.Printf("%s -> %s %s%s", path, filepath.Base(OutputPath(path)), res.Fingerprint, note)
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("watch: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("watch: rename %s: %w", tmp, err)
	}
	return nil
}
