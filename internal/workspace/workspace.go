package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"asciireel/internal/manifest"
	"asciireel/internal/services"
)

const (
	framesDir = "frames"
	textDir   = "text"
	rasterDir = "raster"

	// FramePattern is the ffmpeg output pattern for extracted frames.
	FramePattern = "frame_%06d.png"
	// ManifestName is the manifest database file inside the workspace.
	ManifestName = "manifest.db"
)

var frameNamePattern = regexp.MustCompile(`^frame_(\d+)\.png$`)

// Workspace is a locked working directory.
type Workspace struct {
	dir  string
	lock *flock.Flock
}

// DirName returns the directory name used for inputIdentity under the
// workspace root: the sanitized file stem plus a name-based UUID prefix.
func DirName(inputIdentity string) string {
	stem := strings.TrimSuffix(filepath.Base(inputIdentity), filepath.Ext(inputIdentity))
	stem = sanitize(stem)
	if stem == "" {
		stem = "input"
	}
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+inputIdentity))
	return stem + "-" + id.String()[:8]
}

// Open creates the working directory for inputIdentity under root and locks
// it. It returns an error wrapping services.ErrBusy when another run holds
// the lock.
func Open(root, inputIdentity string) (*Workspace, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "workspace", "create root", root, err)
	}
	dir := filepath.Join(root, DirName(inputIdentity))
	lock := flock.New(dir + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "workspace", "acquire lock", dir, err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrBusy, "workspace", "acquire lock",
			fmt.Sprintf("another run is using %s", dir), nil)
	}

	for _, sub := range []string{framesDir, textDir, rasterDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			_ = lock.Unlock()
			return nil, services.Wrap(services.ErrConfiguration, "workspace", "create directory", sub, err)
		}
	}
	return &Workspace{dir: dir, lock: lock}, nil
}

// Dir returns the working directory.
func (w *Workspace) Dir() string { return w.dir }

// ManifestPath returns the manifest database location.
func (w *Workspace) ManifestPath() string { return filepath.Join(w.dir, ManifestName) }

// DiscardManifest deletes the manifest database and its journal files.
func (w *Workspace) DiscardManifest() error {
	var errs []error
	for _, suffix := range []string{"", "-wal", "-shm"} {
		if err := os.Remove(w.ManifestPath() + suffix); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FramesDir returns the directory frames are extracted into.
func (w *Workspace) FramesDir() string { return filepath.Join(w.dir, framesDir) }

// FramePath returns the location of an extracted frame.
func (w *Workspace) FramePath(name string) string { return filepath.Join(w.dir, framesDir, name) }

// TextPath returns the location of a text artifact.
func (w *Workspace) TextPath(name string) string { return filepath.Join(w.dir, textDir, name) }

// RasterPath returns the location of a raster artifact.
func (w *Workspace) RasterPath(name string) string { return filepath.Join(w.dir, rasterDir, name) }

// AudioPath returns the extracted soundtrack location.
func (w *Workspace) AudioPath() string { return filepath.Join(w.dir, "audio.wav") }

// CompressedAudioPath returns the dynamics-compressed soundtrack location.
func (w *Workspace) CompressedAudioPath() string {
	return filepath.Join(w.dir, "audio_compressed.wav")
}

// VideoPath returns the silent assembled video location.
func (w *Workspace) VideoPath(container string) string {
	return filepath.Join(w.dir, "video."+container)
}

// IndexFrames lists the extracted frames in sequence order.
func (w *Workspace) IndexFrames() ([]manifest.Frame, error) {
	entries, err := os.ReadDir(w.FramesDir())
	if err != nil {
		return nil, fmt.Errorf("read frames directory: %w", err)
	}
	frames := make([]manifest.Frame, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		match := frameNamePattern.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}
		seq, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		frames = append(frames, manifest.Frame{Seq: seq, Frame: entry.Name()})
	}
	sort.Slice(frames, func(i, j int) bool { return frames[i].Seq < frames[j].Seq })
	return frames, nil
}

// ResetArtifacts deletes every frame, text, and raster artifact plus the
// intermediate audio and video files, leaving empty artifact directories.
func (w *Workspace) ResetArtifacts() error {
	if err := w.resetDirs(framesDir, textDir, rasterDir); err != nil {
		return err
	}
	for _, pattern := range []string{"audio*.wav", "video.*"} {
		matches, err := filepath.Glob(filepath.Join(w.dir, pattern))
		if err != nil {
			return fmt.Errorf("match %s: %w", pattern, err)
		}
		for _, path := range matches {
			if err := os.RemoveAll(path); err != nil {
				return fmt.Errorf("remove %s: %w", filepath.Base(path), err)
			}
		}
	}
	return nil
}

// ResetDerived deletes the text and raster artifacts and keeps the frames.
func (w *Workspace) ResetDerived() error {
	return w.resetDirs(textDir, rasterDir)
}

func (w *Workspace) resetDirs(subs ...string) error {
	for _, sub := range subs {
		path := filepath.Join(w.dir, sub)
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("remove %s: %w", sub, err)
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("recreate %s: %w", sub, err)
		}
	}
	return nil
}

// Exists reports whether path names an existing non-empty file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}

// Remove deletes the working directory, releases the lock, and unlinks the
// lock file. It is safe to call more than once. See the package doc for the
// race the unlink leaves open.
func (w *Workspace) Remove() error {
	if w == nil {
		return nil
	}
	var errs []error
	if err := os.RemoveAll(w.dir); err != nil {
		errs = append(errs, fmt.Errorf("remove workspace: %w", err))
	}
	if w.lock != nil {
		lockPath := w.lock.Path()
		if err := w.lock.Unlock(); err != nil {
			errs = append(errs, fmt.Errorf("release workspace lock: %w", err))
		}
		if err := os.Remove(lockPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove lock file: %w", err))
		}
		w.lock = nil
	}
	return errors.Join(errs...)
}

func sanitize(value string) string {
	var b strings.Builder
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '.':
			b.WriteByte('_')
		}
	}
	out := b.String()
	if len(out) > 48 {
		out = out[:48]
	}
	return out
}
