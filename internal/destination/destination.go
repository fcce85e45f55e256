// Package destination decides where a sorted video goes and moves it there.
package destination

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/briancolinger/trail-cam-sorter/internal/failure"
	"github.com/briancolinger/trail-cam-sorter/internal/metadata"
)

// Layouts used in the destination path.
const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02-15-04-05"
)

// Directory permissions.
const dirPerm = 0o755

var errEmptyCameraName = errors.New("camera name is empty")

// Planner computes collision free destination paths.
type Planner struct {
	// Exists reports whether path is already taken.
	Exists func(path string) bool
}

// NewPlanner returns a planner that checks the real filesystem.
func NewPlanner() *Planner {
	return &Planner{Exists: exists}
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return !errors.Is(err, os.ErrNotExist)
}

// Canonical returns outputRoot/CAMERA/YYYY-MM-DD/CAMERA-YYYY-MM-DD-HH-MM-SS.ext
// with the given collision suffix (none when seq is 0).
func Canonical(outputRoot string, md metadata.TrailCamMetadata, ext string, seq int) string {
	name := fmt.Sprintf("%s-%s", md.CameraName, md.Timestamp.Format(timestampLayout))
	if seq > 0 {
		name = fmt.Sprintf("%s-%d", name, seq)
	}
	return filepath.Join(
		outputRoot,
		md.CameraName,
		md.Timestamp.Format(dateLayout),
		name+normalizeExt(ext),
	)
}

// Plan returns the first free destination for md. If source already sits
// at one of the candidate paths it is returned unchanged, so sorting an
// already sorted file is a no-op.
func (p *Planner) Plan(outputRoot string, md metadata.TrailCamMetadata, ext string, source string) (string, error) {
	if md.CameraName == "" {
		return "", failure.New(failure.Validation, "plan", errEmptyCameraName)
	}
	check := p.Exists
	if check == nil {
		check = exists
	}
	src := clean(source)
	for seq := 0; ; seq++ {
		path := Canonical(outputRoot, md, ext, seq)
		if src != "" && clean(path) == src {
			return path, nil
		}
		if !check(path) {
			return path, nil
		}
	}
}

// Move renames src to dest, creating dest's directory first. Moves across
// filesystems fall back to copy and delete.
func Move(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), dirPerm); err != nil {
		return failure.Newf(failure.Rename, "mkdir", "failed to create directory for renamed file: %w", err)
	}

	err := os.Rename(src, dest)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return failure.New(failure.Rename, "rename", err)
	}

	if err := copyFile(src, dest); err != nil {
		return failure.New(failure.Rename, "copy", err)
	}
	if err := os.Remove(src); err != nil {
		return failure.New(failure.Rename, "remove source", err)
	}
	return nil
}

// Same reports whether a and b name the same location.
func Same(a, b string) bool {
	return clean(a) == clean(b)
}

// copyFile never overwrites dest. A partial copy is removed, an existing
// dest is left alone.
func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dest)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dest)
		return err
	}
	return nil
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ext == "" {
		return ""
	}
	return "." + ext
}

func clean(path string) string {
	if path == "" {
		return ""
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
