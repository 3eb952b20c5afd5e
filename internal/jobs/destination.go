// SPDX-License-Identifier: MIT

package jobs

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/geek-md/media-downloader/internal/fsutil"
)

// tempSuffix is appended to the final file name to form the in-flight
// temporary path.
const tempSuffix = ".part"

// destination is the resolved, root-confined target of one job. It is
// recomputed when the remote response supplies a content-derived name and
// re-validated against the root after every recomputation.
type destination struct {
	base  string // canonical base root
	dir   string // canonical destination directory, descendant of base
	final string // canonical final file path, descendant of base
	tmp   string // final + tempSuffix
}

// resolveDestination sanitizes the caller-supplied fragments and proves the
// resulting paths live under base. It creates the destination directory.
func resolveDestination(base, subdir, name string) (*destination, error) {
	dirRel := ""
	if subdir != "" {
		dirRel = fsutil.Sanitize(subdir)
	}

	dir, err := fsutil.ConfineRelPath(base, filepath.Join(".", dirRel))
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create destination directory: %w", err)
	}

	d := &destination{base: base, dir: dir}
	if err := d.setName(name); err != nil {
		return nil, err
	}
	return d, nil
}

// setName places name (already expected to be a bare file name) inside the
// destination directory and re-proves containment. A name that cleans to "."
// or ".." would collapse the join back onto the directory itself, so it falls
// back to the default name before confinement. The temporary path goes through
// the same gate: it must stay a strict descendant of the base root.
func (d *destination) setName(name string) error {
	safe := fsutil.Sanitize(name)
	if c := filepath.Clean(safe); c == "." || c == ".." {
		safe = fsutil.FallbackName
	}
	final, err := fsutil.ConfineAbsPath(d.base, filepath.Join(d.dir, safe))
	if err != nil {
		return err
	}
	if final == d.dir || final == d.base {
		return &fsutil.PathEscapeError{Base: d.base, Path: final}
	}
	tmp, err := fsutil.ConfineAbsPath(d.base, final+tempSuffix)
	if err != nil {
		return err
	}
	d.final = final
	d.tmp = tmp
	return nil
}

// removeStaleTemp clears a leftover temporary file from a previous run.
// Absence is not an error.
func (d *destination) removeStaleTemp() {
	_ = os.Remove(d.tmp)
}
