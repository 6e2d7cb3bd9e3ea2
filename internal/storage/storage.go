// Package storage persists index snapshots to disk. Saves are atomic
// (temp file then rename), every save of an existing snapshot first takes
// a timestamped backup, and loads fall back to the newest readable backup
// when the canonical snapshot is corrupt.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/docsearch-io/docsearch/internal/index"
	dserrors "github.com/docsearch-io/docsearch/pkg/errors"
)

const (
	snapshotVersion = "1.0"
	snapshotName    = "index.json"
	backupPrefix    = "index_backup_"
	backupSuffix    = ".json"
)

// Storage manages the canonical snapshot file and its backup rotation.
// Saves may arrive concurrently from request handlers, the autosave loop,
// and shutdown, so all file mutations are serialized by mu.
type Storage struct {
	mu        sync.Mutex
	dataDir   string
	backupDir string
	keep      int
	logger    *slog.Logger
}

// Info describes the stored snapshot without touching its contents.
type Info struct {
	Exists       bool      `json:"exists"`
	SizeBytes    int64     `json:"size_bytes"`
	SizeMB       float64   `json:"size_mb"`
	LastModified time.Time `json:"last_modified,omitzero"`
	BackupCount  int       `json:"backup_count"`
}

// New creates a Storage rooted at dataDir, creating the data and backup
// directories if needed. keep is the number of backups retained per
// rotation.
func New(dataDir string, keep int) (*Storage, error) {
	s := &Storage{
		dataDir:   dataDir,
		backupDir: filepath.Join(dataDir, "backups"),
		keep:      keep,
		logger:    slog.Default().With("component", "storage"),
	}
	if err := os.MkdirAll(s.backupDir, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directories: %w", err)
	}
	return s, nil
}

func (s *Storage) snapshotPath() string {
	return filepath.Join(s.dataDir, snapshotName)
}

// Save serializes the index and atomically replaces the canonical snapshot
// file. If a snapshot already exists it is backed up first and the backup
// set pruned. On any failure the temp file is removed and the canonical
// file is left exactly as it was.
func (s *Storage) Save(ix *index.Index) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.snapshotPath()); err == nil {
		if err := s.createBackup(); err != nil {
			// A failed backup does not block the save itself.
			s.logger.Warn("backup creation failed", "error", err)
		}
	}

	snap := ix.Snapshot()
	snap.Version = snapshotVersion
	snap.SavedAt = time.Now().UTC().Format(time.RFC3339)

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w: %v", dserrors.ErrPersistence, err)
	}

	tmpPath := s.snapshotPath() + ".tmp"
	if err := writeFileSync(tmpPath, data); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing snapshot: %w: %v", dserrors.ErrPersistence, err)
	}
	if err := os.Rename(tmpPath, s.snapshotPath()); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing snapshot: %w: %v", dserrors.ErrPersistence, err)
	}

	s.logger.Info("snapshot saved",
		"path", s.snapshotPath(),
		"documents", snap.TotalDocuments,
		"terms", snap.TotalTerms,
		"size_bytes", len(data),
	)
	return nil
}

// Load reconstructs an Index from the canonical snapshot. A missing
// snapshot is a valid empty start state and returns a fresh Index. An
// unreadable or corrupt snapshot falls back to the backups, newest first;
// if none can be restored Load returns ErrSnapshotCorrupt rather than a
// silently empty index.
func (s *Storage) Load() (*index.Index, error) {
	data, err := os.ReadFile(s.snapshotPath())
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Info("no snapshot found, starting with empty index")
		return index.New(), nil
	}
	if err != nil {
		s.logger.Error("snapshot unreadable, trying backups", "error", err)
		return s.restoreFromBackup()
	}

	ix, err := decodeSnapshot(data)
	if err != nil {
		s.logger.Error("snapshot corrupt, trying backups", "error", err)
		return s.restoreFromBackup()
	}

	s.logger.Info("snapshot loaded",
		"documents", ix.TotalDocuments(),
		"terms", ix.TotalTerms(),
	)
	return ix, nil
}

// Info returns filesystem metadata about the snapshot and backups.
func (s *Storage) Info() Info {
	info := Info{}
	if stat, err := os.Stat(s.snapshotPath()); err == nil {
		info.Exists = true
		info.SizeBytes = stat.Size()
		info.SizeMB = float64(stat.Size()) / (1024 * 1024)
		info.LastModified = stat.ModTime().UTC()
	}
	backups, err := s.listBackups()
	if err == nil {
		info.BackupCount = len(backups)
	}
	return info
}

// DeleteAll removes the canonical snapshot and every backup.
func (s *Storage) DeleteAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.snapshotPath()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("deleting snapshot: %w: %v", dserrors.ErrPersistence, err)
	}
	backups, err := s.listBackups()
	if err != nil {
		return fmt.Errorf("listing backups: %w: %v", dserrors.ErrPersistence, err)
	}
	for _, b := range backups {
		if err := os.Remove(b.path); err != nil {
			return fmt.Errorf("deleting backup %s: %w: %v", b.path, dserrors.ErrPersistence, err)
		}
	}
	s.logger.Info("snapshot and backups deleted", "backups_removed", len(backups))
	return nil
}

func (s *Storage) restoreFromBackup() (*index.Index, error) {
	backups, err := s.listBackups()
	if err != nil {
		return nil, fmt.Errorf("listing backups: %w: %v", dserrors.ErrSnapshotCorrupt, err)
	}
	for _, b := range backups {
		data, err := os.ReadFile(b.path)
		if err != nil {
			s.logger.Warn("backup unreadable, skipping", "backup", b.path, "error", err)
			continue
		}
		ix, err := decodeSnapshot(data)
		if err != nil {
			s.logger.Warn("backup corrupt, skipping", "backup", b.path, "error", err)
			continue
		}
		s.logger.Info("index restored from backup",
			"backup", b.path,
			"documents", ix.TotalDocuments(),
		)
		return ix, nil
	}
	return nil, fmt.Errorf("no usable backup among %d: %w", len(backups), dserrors.ErrSnapshotCorrupt)
}

func (s *Storage) createBackup() error {
	name := fmt.Sprintf("%s%d%s", backupPrefix, time.Now().UnixNano(), backupSuffix)
	dst := filepath.Join(s.backupDir, name)
	if err := copyFile(s.snapshotPath(), dst); err != nil {
		return fmt.Errorf("copying snapshot to backup: %w", err)
	}
	if err := s.pruneBackups(); err != nil {
		s.logger.Warn("pruning old backups failed", "error", err)
	}
	s.logger.Debug("backup created", "backup", dst)
	return nil
}

func (s *Storage) pruneBackups() error {
	backups, err := s.listBackups()
	if err != nil {
		return err
	}
	for _, old := range backups[min(s.keep, len(backups)):] {
		if err := os.Remove(old.path); err != nil {
			return fmt.Errorf("removing old backup %s: %w", old.path, err)
		}
		s.logger.Debug("old backup removed", "backup", old.path)
	}
	return nil
}

type backupFile struct {
	path    string
	modTime time.Time
}

// listBackups returns the backup files newest first. Names embed a
// nanosecond timestamp, which breaks ties on filesystems with coarse
// mtime resolution.
func (s *Storage) listBackups() ([]backupFile, error) {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	backups := make([]backupFile, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, backupPrefix) || !strings.HasSuffix(name, backupSuffix) {
			continue
		}
		stat, err := entry.Info()
		if err != nil {
			continue
		}
		backups = append(backups, backupFile{
			path:    filepath.Join(s.backupDir, name),
			modTime: stat.ModTime(),
		})
	}
	sort.Slice(backups, func(i, j int) bool {
		if !backups[i].modTime.Equal(backups[j].modTime) {
			return backups[i].modTime.After(backups[j].modTime)
		}
		return backups[i].path > backups[j].path
	})
	return backups, nil
}

func decodeSnapshot(data []byte) (*index.Index, error) {
	var snap index.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}
	ix, err := index.FromSnapshot(&snap)
	if err != nil {
		return nil, fmt.Errorf("reconstructing index: %w", err)
	}
	return ix, nil
}

func writeFileSync(path string, data []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
