package sorter

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/maruel/natural"
	log "github.com/sirupsen/logrus"
)

// Names of OS junk that is never sorted.
var ignoreNames = []string{
	".DS_Store",
	"Thumbs.db",
	"$RECYCLE.BIN",
	".Spotlight-V100",
	"System Volume Information",
	".fseventsd",
	".Trashes",
	".TemporaryItems",
}

// Junk that is deleted from the first level of the input directory.
var junkNames = []string{".DS_Store", "Thumbs.db"}

// Video and image formats written by trail cameras.
var supportedExtensions = []string{
	".avi", ".mp4", ".mkv", ".mov", ".wmv", ".flv", ".webm", ".3gp", ".mpeg", ".asf", ".ogg",
	".m4v", ".mpg", ".m2v", ".ts", ".mts", ".m2ts", ".vob",
	".jpeg", ".jpg", ".png", ".gif", ".bmp", ".tiff", ".tga", ".psd",
}

// AppleDouble companions such as ._01.avi.
var appleDouble = regexp.MustCompile(`^\._.+`)

// Generates a map containing the names of directories and files that
// should be ignored while processing files.
func getIgnoreMap() map[string]bool {
	ignoreMap := make(map[string]bool, len(ignoreNames))
	for _, name := range ignoreNames {
		ignoreMap[name] = true
	}
	return ignoreMap
}

// hasMediaFileExtension checks the extension against the supported formats.
func hasMediaFileExtension(path string) bool {
	if appleDouble.MatchString(filepath.Base(path)) {
		return false
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, supportedExt := range supportedExtensions {
		if ext == supportedExt {
			return true
		}
	}
	return false
}

// collectFiles walks the input directory and returns every sortable file
// in natural order. The output tree is skipped when it is nested inside
// the input tree.
func (s *Sorter) collectFiles() ([]string, error) {
	var files []string
	outputDir := absPath(s.params.OutputDir)

	err := filepath.WalkDir(s.params.InputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return s.handleWalkError(path, err)
		}

		if d.IsDir() {
			if path != s.params.InputDir && absPath(path) == outputDir {
				s.log.WithFields(log.Fields{"type": "directory", "path": path}).Debug("Skipping output directory")
				return filepath.SkipDir
			}
			return s.handleWalkDirectory(path)
		}

		if s.ignoreMap[d.Name()] {
			s.log.WithFields(log.Fields{"type": "file", "path": path}).Debug("Skipping ignored file")
			return nil
		}
		if !d.Type().IsRegular() || !hasMediaFileExtension(path) {
			return nil
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Sort(natural.StringSlice(files))
	return files, nil
}

// Handles errors encountered while walking the input directory.
// It logs the error and skips the directory if there's a permission issue.
func (s *Sorter) handleWalkError(path string, err error) error {
	if os.IsPermission(err) {
		s.log.WithFields(log.Fields{"path": path, "error": err}).Warn("Skipping directory due to permission issue")
		return filepath.SkipDir
	}
	s.log.WithFields(log.Fields{"path": path, "error": err}).Error("Error accessing path")
	return nil
}

// Checks if a directory should be ignored while walking the input
// directory, and skips it if necessary.
func (s *Sorter) handleWalkDirectory(path string) error {
	if s.ignoreMap[filepath.Base(path)] {
		s.log.WithFields(log.Fields{"type": "directory", "path": path}).Warn("Skipping ignored directory")
		return filepath.SkipDir
	}
	return nil
}

// deleteJunkFiles removes .DS_Store and Thumbs.db one level below the input directory.
func (s *Sorter) deleteJunkFiles() {
	for _, name := range junkNames {
		matches, err := filepath.Glob(filepath.Join(globEscape(s.params.InputDir), "*", name))
		if err != nil {
			s.log.WithError(err).Error("Error finding junk files")
			continue
		}
		for _, path := range matches {
			if s.params.DryRun {
				s.log.WithFields(log.Fields{"type": "DRY RUN", "path": path}).Info("Skip deleting junk file")
				continue
			}
			if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
				s.log.WithFields(log.Fields{"path": path, "error": err}).Error("Error deleting junk file")
				continue
			}
			s.log.WithField("path", path).Debug("Deleted junk file")
		}
	}
}

// removeEmptyDirs removes every empty directory below root, children first.
// root itself is kept.
func (s *Sorter) removeEmptyDirs(root string) error {
	if s.params.DryRun {
		s.log.WithField("type", "DRY RUN").Debug("Skip removing empty directories")
		return nil
	}

	var dirs []string
	outputDir := absPath(s.params.OutputDir)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			s.log.WithFields(log.Fields{"path": path, "error": err}).Error("Error accessing path")
			return nil
		}
		if d.IsDir() && path != root && absPath(path) == outputDir {
			return filepath.SkipDir
		}
		if d.IsDir() && path != root {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	// WalkDir is pre-order, so walking backwards visits children first.
	for i := len(dirs) - 1; i >= 0; i-- {
		entries, err := os.ReadDir(dirs[i])
		if err != nil {
			continue
		}
		if len(entries) > 0 {
			continue
		}
		if err := os.Remove(dirs[i]); err != nil {
			return err
		}
		s.log.WithField("path", dirs[i]).Info("Removed empty directory")
	}
	return nil
}

// within reports whether path is root or lies below it.
func within(root, path string) bool {
	rel, err := filepath.Rel(absPath(root), absPath(path))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

var globMeta = strings.NewReplacer(`*`, `\*`, `?`, `\?`, `[`, `\[`)

func globEscape(path string) string {
	if filepath.Separator == '\\' {
		return path
	}
	return globMeta.Replace(path)
}
