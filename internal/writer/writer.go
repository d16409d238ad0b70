package writer

import (
	"fmt"
	"os"
	"strings"

	"github.com/oxhq/cs2lua/internal/util"
)

// Writer abstracts how a compiled unit's Lua output reaches disk: staged
// (the default, no filesystem mutation until a later `cs2luac --commit`)
// or written straight through. StagingWriter and CommitWriter both already
// satisfy this shape; DiskWriter below is the direct-write counterpart,
// used when the CLI runs with `--direct`.
type Writer interface {
	WriteFile(path string, content []byte, perm os.FileMode) error
	Summary() string
}

var (
	_ Writer = (*StagingWriter)(nil)
	_ Writer = (*DiskWriter)(nil)
)

// DiskWriter writes compiled output straight to its destination path,
// atomically (util.WriteFileAtomic), with no staging step.
type DiskWriter struct {
	writtenFiles []string
}

func NewDiskWriter() *DiskWriter {
	return &DiskWriter{writtenFiles: make([]string, 0, 8)}
}

func (w *DiskWriter) WriteFile(path string, content []byte, perm os.FileMode) error {
	if err := util.WriteFileAtomic(path, content, perm); err != nil {
		return fmt.Errorf("writing file %s: %w", path, err)
	}
	w.writtenFiles = append(w.writtenFiles, path)
	return nil
}

func (w *DiskWriter) Summary() string {
	if len(w.writtenFiles) == 0 {
		return "No files were written."
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Compiled %d file(s):\n", len(w.writtenFiles)))
	for _, path := range w.writtenFiles {
		sb.WriteString("  " + path + "\n")
	}
	return sb.String()
}
