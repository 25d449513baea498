// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package cache implements the content-addressed extraction cache: a
// two-stage SHA-256 key (PDF content digest, then digest+portion) guards an
// in-memory LRU of previously extracted tables, snapshotted to JSON when the
// caller invokes Store so repeated runs against an unchanged PDF skip the external
// extractor entirely.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/travdata/tabex/pkg/extractor"
)

// Config bounds the cache's two in-memory LRUs. A zero value is invalid;
// use DefaultConfig.
type Config struct {
	// EntriesCapacity bounds the number of cached ExtractedTables.
	EntriesCapacity int
	// FileHashCapacity bounds the number of cached (path -> digest) entries.
	FileHashCapacity int
}

// DefaultConfig matches the source's former hard-coded MAX_TABLES_LRU (1000)
// and MAX_FILE_HASH_LRU (100), now exposed as configuration.
func DefaultConfig() Config {
	return Config{EntriesCapacity: 1000, FileHashCapacity: 100}
}

const snapshotVersion = "1"

// digest is a SHA-256 output, serialised as lowercase hex.
type digest [sha256.Size]byte

func (d digest) String() string { return hex.EncodeToString(d[:]) }

func digestFromHex(s string) (digest, error) {
	var d digest
	b, err := hex.DecodeString(s)
	if err != nil {
		return d, fmt.Errorf("cache: invalid digest %q: %w", s, err)
	}
	if len(b) != sha256.Size {
		return d, fmt.Errorf("cache: invalid digest length %q", s)
	}
	copy(d[:], b)
	return d, nil
}

type fileHashEntry struct {
	digest digest
	size   int64
	mtime  time.Time
}

// Cache wraps an extractor.TableReader delegate with a content-addressed
// cache of previously read TablePortions.
type Cache struct {
	delegate T

	logger *slog.Logger

	snapshotPath string

	mu      sync.Mutex
	entries *lru.Cache[digest, extractor.ExtractedTable]

	fileHashMu sync.Mutex
	fileHashes *lru.Cache[string, fileHashEntry]
}

// T is the wrapped extractor.TableReader.
type T = extractor.TableReader

// Load constructs a Cache wrapping delegate, attempting to read an existing
// JSON snapshot from snapshotPath. A missing, corrupt, or version-mismatched
// snapshot is treated as an empty cache; the failure (if any) is logged,
// never returned.
func Load(delegate T, snapshotPath string, cfg Config, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}

	entries, err := lru.New[digest, extractor.ExtractedTable](cfg.EntriesCapacity)
	if err != nil {
		return nil, fmt.Errorf("cache: construct entries LRU: %w", err)
	}
	fileHashes, err := lru.New[string, fileHashEntry](cfg.FileHashCapacity)
	if err != nil {
		return nil, fmt.Errorf("cache: construct file-hash LRU: %w", err)
	}

	c := &Cache{
		delegate:     delegate,
		logger:       logger,
		snapshotPath: snapshotPath,
		entries:      entries,
		fileHashes:   fileHashes,
	}

	if err := c.loadSnapshot(); err != nil {
		logger.Warn("extraction cache snapshot load failed, starting empty", "path", snapshotPath, "err", err)
	}

	return c, nil
}

// ReadTablePortions implements extractor.TableReader, consulting the cache
// before delegating to the wrapped reader.
func (c *Cache) ReadTablePortions(pdfPath string, portions []extractor.TablePortion) ([]extractor.ExtractedTable, error) {
	pdfDigest, err := c.hashFile(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("cache: hashing %s: %w", pdfPath, err)
	}

	results := make([]extractor.ExtractedTable, len(portions))
	misses := make([]int, 0, len(portions))
	keys := make([]digest, len(portions))

	for i, portion := range portions {
		key, err := entryKey(pdfDigest, portion)
		if err != nil {
			return nil, err
		}
		keys[i] = key

		c.mu.Lock()
		cached, ok := c.entries.Get(key)
		c.mu.Unlock()
		if ok {
			results[i] = cached
			continue
		}
		misses = append(misses, i)
	}

	if len(misses) == 0 {
		return results, nil
	}

	missPortions := make([]extractor.TablePortion, len(misses))
	for j, i := range misses {
		missPortions[j] = portions[i]
	}

	fetched, err := c.delegate.ReadTablePortions(pdfPath, missPortions)
	if err != nil {
		return nil, err
	}
	if len(fetched) != len(missPortions) {
		return nil, fmt.Errorf("cache: delegate returned %d tables for %d requested portions", len(fetched), len(missPortions))
	}

	for j, i := range misses {
		results[i] = fetched[j]
		c.mu.Lock()
		c.entries.Add(keys[i], fetched[j])
		c.mu.Unlock()
	}

	return results, nil
}

// entryKey computes the second-stage cache key: H(pdfDigest || canonical
// bytes of portion).
func entryKey(pdfDigest digest, portion extractor.TablePortion) (digest, error) {
	canon, err := portion.CanonicalBytes()
	if err != nil {
		return digest{}, fmt.Errorf("cache: canonicalizing portion: %w", err)
	}
	h := sha256.New()
	h.Write(pdfDigest[:])
	h.Write(canon)
	var out digest
	copy(out[:], h.Sum(nil))
	return out, nil
}

// hashFile computes pdfDigest for path, reusing a cached digest when the
// file's size and modification time have not changed since it was last
// hashed.
func (c *Cache) hashFile(path string) (digest, error) {
	canonicalPath, err := canonicalizePath(path)
	if err != nil {
		return digest{}, fmt.Errorf("resolving canonical path: %w", err)
	}

	stat, err := os.Stat(canonicalPath)
	if err != nil {
		return digest{}, fmt.Errorf("stat %s: %w", canonicalPath, err)
	}

	c.fileHashMu.Lock()
	cached, ok := c.fileHashes.Get(canonicalPath)
	c.fileHashMu.Unlock()
	if ok && cached.size == stat.Size() && cached.mtime.Equal(stat.ModTime()) {
		return cached.digest, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return digest{}, fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := copyForHash(h, f); err != nil {
		return digest{}, fmt.Errorf("reading %s for hashing: %w", path, err)
	}
	var d digest
	copy(d[:], h.Sum(nil))

	c.fileHashMu.Lock()
	c.fileHashes.Add(canonicalPath, fileHashEntry{digest: d, size: stat.Size(), mtime: stat.ModTime()})
	c.fileHashMu.Unlock()

	return d, nil
}
