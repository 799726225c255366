package compiler

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/detekt/kcheck/internal/models"
)

// writeSources writes sources into workspaceDir with path-traversal
// protection and returns the absolute path of every written file.
func writeSources(workspaceDir string, sources []models.SourceFile) ([]string, error) {
	baseWorkspace := filepath.Clean(workspaceDir)
	if baseWorkspace == "" || baseWorkspace == "." {
		return nil, fmt.Errorf("workspace is not set")
	}

	baseWithSep := baseWorkspace + string(os.PathSeparator)

	written := make([]string, 0, len(sources))
	for _, src := range sources {
		if src.Path == "" {
			continue
		}

		relPath := filepath.Clean(src.Path)
		if filepath.IsAbs(relPath) {
			return nil, fmt.Errorf("source path %q must be relative", src.Path)
		}

		fullPath := filepath.Join(baseWorkspace, relPath)
		if fullPath == baseWorkspace || !strings.HasPrefix(fullPath+string(os.PathSeparator), baseWithSep) {
			return nil, fmt.Errorf("source path %q escapes workspace", src.Path)
		}

		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			return nil, fmt.Errorf("creating directory for source %q: %w", src.Path, err)
		}

		if err := os.WriteFile(fullPath, []byte(src.Content), 0644); err != nil {
			return nil, fmt.Errorf("writing source %q: %w", src.Path, err)
		}
		written = append(written, fullPath)
	}

	return written, nil
}
