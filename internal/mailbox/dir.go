package mailbox

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ProcessedDir is the subdirectory DirDialer moves handled files into.
const ProcessedDir = "processed"

// DirDialer is an offline mailbox over a directory of .eml files.
// A file's modification time is its received time; ProcessedDir is ignored.
type DirDialer struct {
	Dir string
}

// Dial opens the directory. A missing directory is an error.
func (d DirDialer) Dial(ctx context.Context) (Mailbox, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := os.Stat(d.Dir)
	if err != nil {
		return nil, fmt.Errorf("opening mail dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("mail dir %s is not a directory", d.Dir)
	}
	return &dirMailbox{dir: d.Dir}, nil
}

// MarkProcessed moves a message file from the directory to ProcessedDir.
func (d DirDialer) MarkProcessed(name string) error {
	src := filepath.Join(d.Dir, name)
	dstDir := filepath.Join(d.Dir, ProcessedDir)

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	dst := filepath.Join(dstDir, name)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", name, err)
	}
	return nil
}

type dirMailbox struct {
	dir string
}

func (m *dirMailbox) SearchSince(ctx context.Context, since time.Time) ([]MessageRef, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("reading mail dir: %w", err)
	}

	var refs []MessageRef
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".eml") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		if info.ModTime().Before(since) {
			continue
		}
		refs = append(refs, MessageRef{ID: e.Name(), ReceivedAt: info.ModTime()})
	}

	sort.SliceStable(refs, func(i, j int) bool {
		if refs[i].ReceivedAt.Equal(refs[j].ReceivedAt) {
			return refs[i].ID < refs[j].ID
		}
		return refs[i].ReceivedAt.Before(refs[j].ReceivedAt)
	})
	return refs, nil
}

func (m *dirMailbox) Fetch(ctx context.Context, ref MessageRef) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ref.ID != filepath.Base(ref.ID) {
		return nil, fmt.Errorf("invalid message id %q", ref.ID)
	}
	raw, err := os.ReadFile(filepath.Join(m.dir, ref.ID))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", ref.ID, err)
	}
	return raw, nil
}

func (m *dirMailbox) Close() error { return nil }
