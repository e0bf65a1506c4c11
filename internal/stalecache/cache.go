package stalecache

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"asciireel/internal/logging"
)

// Record is the persisted pair describing the last successful extraction.
type Record struct {
	InputIdentity     string
	ModificationStamp string
}

// Cache reads and writes the record file at a fixed path.
type Cache struct {
	path   string
	logger *slog.Logger
}

// New returns a cache backed by path. The file is created on first Save.
func New(path string, logger *slog.Logger) *Cache {
	return &Cache{path: path, logger: logging.NewComponentLogger(logger, "stalecache")}
}

// Path returns the cache file location.
func (c *Cache) Path() string {
	return c.path
}

// Identity returns the stable identity of inputPath.
func Identity(inputPath string) (string, error) {
	abs, err := filepath.Abs(inputPath)
	if err != nil {
		return "", fmt.Errorf("resolve input path: %w", err)
	}
	return filepath.Clean(abs), nil
}

// Stamp returns the modification stamp of inputPath as it is on disk now.
func Stamp(inputPath string) (string, error) {
	info, err := os.Stat(inputPath)
	if err != nil {
		return "", fmt.Errorf("stat input: %w", err)
	}
	return info.ModTime().UTC().Format(time.RFC3339Nano) + "/" + strconv.FormatInt(info.Size(), 10), nil
}

// Current builds the record inputPath would be saved with.
func Current(inputPath string) (Record, error) {
	identity, err := Identity(inputPath)
	if err != nil {
		return Record{}, err
	}
	stamp, err := Stamp(inputPath)
	if err != nil {
		return Record{}, err
	}
	return Record{InputIdentity: identity, ModificationStamp: stamp}, nil
}

// IsValid reports whether the stored record matches inputPath's current
// identity and stamp. Any read or stat failure counts as stale.
func (c *Cache) IsValid(inputPath string) bool {
	stored, ok, err := c.Load()
	if err != nil {
		c.logger.Debug("staleness cache unreadable; treating as stale",
			logging.String("path", c.path),
			logging.Error(err))
		return false
	}
	if !ok {
		return false
	}
	current, err := Current(inputPath)
	if err != nil {
		c.logger.Debug("input stat failed; treating cache as stale",
			logging.String("input", inputPath),
			logging.Error(err))
		return false
	}
	return stored == current
}

// Save records inputPath's current identity and stamp, replacing any previous
// record atomically.
func (c *Cache) Save(inputPath string) error {
	record, err := Current(inputPath)
	if err != nil {
		return err
	}
	if err := c.write(record); err != nil {
		return err
	}
	c.logger.Debug("saved staleness record",
		logging.String("input", record.InputIdentity),
		logging.String("stamp", record.ModificationStamp))
	return nil
}

// Load returns the stored record. A missing or empty file reports ok=false
// with no error.
func (c *Cache) Load() (Record, bool, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Record{}, false, nil
		}
		return Record{}, false, fmt.Errorf("read cache file: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return Record{}, false, nil
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		return Record{}, false, fmt.Errorf("parse cache file: expected 2 lines, got %d", len(lines))
	}
	return Record{
		InputIdentity:     strings.TrimSpace(lines[0]),
		ModificationStamp: strings.TrimSpace(lines[1]),
	}, true, nil
}

// Clear removes the cache file. A missing file is not an error.
func (c *Cache) Clear() error {
	if err := os.Remove(c.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove cache file: %w", err)
	}
	return nil
}

func (c *Cache) write(record Record) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	data := record.InputIdentity + "\n" + record.ModificationStamp + "\n"

	tmp, err := os.CreateTemp(filepath.Dir(c.path), filepath.Base(c.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.WriteString(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := renameFile(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

var renameFile = os.Rename
