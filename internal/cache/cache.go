// Package cache stores case outcomes on disk, keyed by everything that can
// change what the compiler prints for a case.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/detekt/kcheck/internal/models"
	"github.com/gofrs/flock"
	"github.com/klauspost/compress/zstd"
)

const (
	entryExt = ".json.zst"
	lockName = ".kcheck.lock"
)

var (
	// EncodeAll/DecodeAll are safe for concurrent use.
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	decoder, _ = zstd.NewReader(nil)
)

// Cache provides caching for case outcomes
type Cache struct {
	dir string
	mu  sync.Mutex
}

// New creates a new cache instance with the specified directory. An empty
// dir disables the cache.
func New(dir string) *Cache {
	return &Cache{dir: dir}
}

// Dir returns the cache directory.
func (c *Cache) Dir() string { return c.dir }

// Settings are the compiler-side inputs of a cache key.
type Settings struct {
	Compiler      string
	PluginJar     string
	Args          []string
	PluginOptions map[string]string
}

// CacheKey generates a unique cache key for a case run.
// The key is based on:
// - suite-wide checks and compiler args
// - the case definition
// - the resolved source contents
// - the compiler, its arguments and the plugin jar's contents
func CacheKey(suite *models.SuiteSpec, c *models.CaseSpec, sources []models.SourceFile, settings Settings) (string, error) {
	h := sha256.New()

	if err := writeString(h, suite.Name); err != nil {
		return "", err
	}
	if err := writeString(h, settings.Compiler); err != nil {
		return "", err
	}
	if err := writeStrings(h, settings.Args); err != nil {
		return "", err
	}
	if err := writeStrings(h, suite.Config.CompilerArgs); err != nil {
		return "", err
	}
	if err := writeOptions(h, settings.PluginOptions); err != nil {
		return "", err
	}
	if err := writeOptions(h, suite.Config.PluginOptions); err != nil {
		return "", err
	}

	checksJSON, err := json.Marshal(suite.Checks)
	if err != nil {
		return "", fmt.Errorf("marshaling suite checks: %w", err)
	}
	if _, err := h.Write(checksJSON); err != nil {
		return "", err
	}

	caseJSON, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshaling case: %w", err)
	}
	if _, err := h.Write(caseJSON); err != nil {
		return "", err
	}

	for _, src := range sources {
		if err := writeString(h, src.Path); err != nil {
			return "", err
		}
		if err := writeString(h, src.Content); err != nil {
			return "", err
		}
	}

	if settings.PluginJar != "" {
		if err := hashFile(h, settings.PluginJar); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return "", fmt.Errorf("hashing plugin jar: %w", err)
			}
			// a missing jar still changes the key
			if err := writeString(h, settings.PluginJar); err != nil {
				return "", err
			}
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Get retrieves a cached case outcome if it exists
func (c *Cache) Get(key string) (*models.CaseOutcome, bool) {
	if c.dir == "" {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	compressed, err := os.ReadFile(c.cachePath(key))
	if err != nil {
		return nil, false
	}

	data, err := decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, false
	}

	var outcome models.CaseOutcome
	if err := json.Unmarshal(data, &outcome); err != nil {
		// Invalid cache entry, treat as miss
		return nil, false
	}

	return &outcome, true
}

// Put stores a case outcome in the cache
func (c *Cache) Put(key string, outcome *models.CaseOutcome) error {
	if c.dir == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	lock := flock.New(filepath.Join(c.dir, lockName))
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("locking cache directory: %w", err)
	}
	defer lock.Unlock() //nolint:errcheck

	data, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("marshaling outcome: %w", err)
	}

	return atomicWrite(c.cachePath(key), encoder.EncodeAll(data, nil))
}

// Clear removes all cached results
func (c *Cache) Clear() error {
	if c.dir == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := os.Stat(c.dir); os.IsNotExist(err) {
		return nil
	}

	lock := flock.New(filepath.Join(c.dir, lockName))
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("locking cache directory: %w", err)
	}
	defer lock.Unlock() //nolint:errcheck

	// Safety check: only delete directories that hold nothing but cache files
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("reading cache directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			return fmt.Errorf("cache directory contains subdirectories - refusing to delete for safety")
		}
		if entry.Name() != lockName && !strings.HasSuffix(entry.Name(), entryExt) {
			return fmt.Errorf("cache directory contains non-cache file '%s' - refusing to delete for safety", entry.Name())
		}
	}

	for _, entry := range entries {
		if entry.Name() == lockName {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, entry.Name())); err != nil {
			return fmt.Errorf("removing cache entry: %w", err)
		}
	}
	return nil
}

// cachePath returns the file path for a cache key
func (c *Cache) cachePath(key string) string {
	return filepath.Join(c.dir, key+entryExt)
}

// atomicWrite writes through a temp file and rename so concurrent readers
// never see a partial entry.
func atomicWrite(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*"+entryExt)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()        //nolint:errcheck
		os.Remove(tmpPath) //nolint:errcheck
		return fmt.Errorf("writing cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath) //nolint:errcheck
		return fmt.Errorf("writing cache file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath) //nolint:errcheck
		return fmt.Errorf("writing cache file: %w", err)
	}
	return nil
}

// Helper functions

func writeString(w io.Writer, s string) error {
	// null byte delimiter prevents ("ab","c") and ("a","bc") from colliding
	_, err := w.Write([]byte(s + "\x00"))
	return err
}

func writeStrings(w io.Writer, ss []string) error {
	if _, err := fmt.Fprintf(w, "%d\x00", len(ss)); err != nil {
		return err
	}
	for _, s := range ss {
		if err := writeString(w, s); err != nil {
			return err
		}
	}
	return nil
}

func writeOptions(w io.Writer, opts map[string]string) error {
	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+opts[k])
	}
	return writeStrings(w, pairs)
}

func hashFile(h io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck

	_, err = io.Copy(h, f)
	return err
}
