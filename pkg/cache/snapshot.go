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

package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/travdata/tabex/pkg/extractor"
	"github.com/travdata/tabex/pkg/table"
)

// persistentCache is the on-disk snapshot format: {"version":"1","entries":{hex-digest: ExtractedTable}}.
type persistentCache struct {
	Version string                            `json:"version"`
	Entries map[string]snapshotExtractedTable `json:"entries"`
}

// snapshotExtractedTable mirrors extractor.ExtractedTable for JSON framing,
// since table.Table's internal row slice serialises directly as [][]string.
type snapshotExtractedTable struct {
	Page int32      `json:"page"`
	Data [][]string `json:"data"`
}

func rowsToTable(rows [][]string) table.Table {
	return table.New(rows)
}

func tableToRows(t table.Table) [][]string {
	return t.Rows
}

func (c *Cache) loadSnapshot() error {
	f, err := os.Open(c.snapshotPath)
	if err != nil {
		if os.IsNotExist(err) {
			c.logger.Info("no existing extraction cache snapshot found", "path", c.snapshotPath)
			return nil
		}
		return fmt.Errorf("opening snapshot %s: %w", c.snapshotPath, err)
	}
	defer f.Close()

	var snap persistentCache
	if err := json.NewDecoder(f).Decode(&snap); err != nil {
		return fmt.Errorf("decoding snapshot %s: %w", c.snapshotPath, err)
	}

	if snap.Version != snapshotVersion {
		c.logger.Info("discarding extraction cache snapshot with mismatched version",
			"path", c.snapshotPath, "found_version", snap.Version, "want_version", snapshotVersion)
		return nil
	}

	loaded := 0
	for hexKey, entry := range snap.Entries {
		key, err := digestFromHex(hexKey)
		if err != nil {
			c.logger.Warn("skipping malformed cache snapshot entry", "key", hexKey, "err", err)
			continue
		}
		c.entries.Add(key, extractor.ExtractedTable{Page: entry.Page, Data: rowsToTable(entry.Data)})
		loaded++
	}
	c.logger.Debug("loaded extraction cache snapshot", "path", c.snapshotPath, "entries", loaded)
	return nil
}

// Store writes the cache's current entries back to its snapshot path, via
// an atomic temp-file-then-rename, matching the rest of the module's
// write-commit contract. A failure is logged by the caller; Store returns
// the error so the caller can decide how to surface it, but the process's
// extraction results are never affected by this failing.
func (c *Cache) Store() error {
	c.mu.Lock()
	keys := c.entries.Keys()
	entries := make(map[string]snapshotExtractedTable, len(keys))
	for _, key := range keys {
		value, ok := c.entries.Peek(key)
		if !ok {
			continue
		}
		entries[key.String()] = snapshotExtractedTable{Page: value.Page, Data: tableToRows(value.Data)}
	}
	c.mu.Unlock()

	snap := persistentCache{Version: snapshotVersion, Entries: entries}

	dir := filepath.Dir(c.snapshotPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating cache snapshot directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-cache-*")
	if err != nil {
		return fmt.Errorf("creating temp snapshot file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := json.NewEncoder(tmp).Encode(snap); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("encoding cache snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp snapshot file: %w", err)
	}
	if err := os.Rename(tmpPath, c.snapshotPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp snapshot into place: %w", err)
	}
	return nil
}
