// Package export provides data export and import as portable archives.
package export

import (
	"archive/tar"
	"compress/gzip"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	apperrors "github.com/evelynmak/stillpoint/core/internal/errors"
	"github.com/evelynmak/stillpoint/core/internal/logging"
	"github.com/evelynmak/stillpoint/core/internal/models"
	"github.com/evelynmak/stillpoint/core/internal/store"
)

const manifestVersion = "1.0"

// Service builds and restores full-data archives. An archive is a tar.gz
// holding data.json (the snapshot) and manifest.json (metadata plus a
// sha256 checksum of the snapshot).
type Service struct {
	store *store.Store
}

// NewService creates an export Service over the given store.
func NewService(st *store.Store) *Service {
	return &Service{store: st}
}

// Snapshot is the full exportable state of a user's data. The mutation
// queue and connectivity logs are device-local and deliberately excluded.
type Snapshot struct {
	MoodEntries []*models.MoodEntry       `json:"mood_entries"`
	Sessions    []*models.ActivitySession `json:"activity_sessions"`
	Preferences *models.Preferences       `json:"preferences"`
}

// Manifest describes an archive's contents.
type Manifest struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	ItemCount  int       `json:"item_count"`
	Checksum   string    `json:"checksum"`
}

// Result reports a finished export.
type Result struct {
	FilePath  string
	SizeBytes int64
	ItemCount int
	Checksum  string
	Duration  time.Duration
}

// ImportResult reports a finished import.
type ImportResult struct {
	ImportedCount int
	Duration      time.Duration
}

// Export writes all user data to a tar.gz archive at outputPath. An
// empty outputPath defaults to exports/stillpoint_<timestamp>.tar.gz.
func (s *Service) Export(outputPath string) (*Result, error) {
	startTime := time.Now()

	tempDir, err := os.MkdirTemp("", "stillpoint-export-*")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrExportFailed, "failed to create temp directory", err)
	}
	defer os.RemoveAll(tempDir)

	snapshot := s.ExportData()
	itemCount := len(snapshot.MoodEntries) + len(snapshot.Sessions)

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrExportFailed, "failed to encode snapshot", err)
	}
	dataPath := filepath.Join(tempDir, "data.json")
	if err := os.WriteFile(dataPath, data, 0644); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrExportFailed, "failed to write snapshot", err)
	}
	checksum := fmt.Sprintf("%x", sha256.Sum256(data))

	manifest := &Manifest{
		Version:    manifestVersion,
		ExportedAt: startTime,
		ItemCount:  itemCount,
		Checksum:   checksum,
	}
	manifestData, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrExportFailed, "failed to encode manifest", err)
	}
	if err := os.WriteFile(filepath.Join(tempDir, "manifest.json"), manifestData, 0644); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrExportFailed, "failed to write manifest", err)
	}

	if outputPath == "" {
		outputPath = fmt.Sprintf("exports/stillpoint_%s.tar.gz",
			startTime.Format("20060102_150405"))
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrExportFailed, "failed to create output directory", err)
	}

	sizeBytes, err := createArchive(tempDir, outputPath)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrExportFailed, "failed to create archive", err)
	}

	logging.Info("Export completed", map[string]interface{}{
		"path":       outputPath,
		"item_count": itemCount,
		"size_bytes": sizeBytes,
	})

	return &Result{
		FilePath:  outputPath,
		SizeBytes: sizeBytes,
		ItemCount: itemCount,
		Checksum:  checksum,
		Duration:  time.Since(startTime),
	}, nil
}

// Import restores user data from an archive created by Export. Existing
// mood entries, sessions, and preferences are replaced wholesale; the
// mutation queue is untouched.
func (s *Service) Import(archivePath string) (*ImportResult, error) {
	startTime := time.Now()

	tempDir, err := os.MkdirTemp("", "stillpoint-import-*")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrImportFailed, "failed to create temp directory", err)
	}
	defer os.RemoveAll(tempDir)

	if err := extractArchive(archivePath, tempDir); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCorruptedArchive, "failed to extract archive", err)
	}

	manifest, err := readManifest(filepath.Join(tempDir, "manifest.json"))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCorruptedArchive, "archive has no readable manifest", err)
	}
	if manifest.Checksum == "" {
		return nil, apperrors.New(apperrors.ErrCorruptedArchive, "manifest missing checksum")
	}

	dataPath := filepath.Join(tempDir, "data.json")
	if err := verifyChecksum(dataPath, manifest.Checksum); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCorruptedArchive, "snapshot integrity check failed", err)
	}

	data, err := os.ReadFile(dataPath)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrImportFailed, "failed to read snapshot", err)
	}
	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCorruptedArchive, "snapshot is not valid JSON", err)
	}

	if err := s.ImportData(&snapshot); err != nil {
		return nil, err
	}

	imported := len(snapshot.MoodEntries) + len(snapshot.Sessions)
	logging.Info("Import completed", map[string]interface{}{
		"path":       archivePath,
		"item_count": imported,
	})

	return &ImportResult{
		ImportedCount: imported,
		Duration:      time.Since(startTime),
	}, nil
}

// ExportData returns the full logical dataset as a transferable snapshot.
func (s *Service) ExportData() *Snapshot {
	return &Snapshot{
		MoodEntries: s.store.ListMoodEntries(0),
		Sessions:    s.store.ListSessions(0),
		Preferences: s.store.Preferences(),
	}
}

// ImportData restores the logical dataset from a snapshot, replacing
// existing entities and preferences.
func (s *Service) ImportData(snapshot *Snapshot) error {
	if err := s.store.ReplaceMoodEntries(snapshot.MoodEntries); err != nil {
		return apperrors.Wrap(apperrors.ErrImportFailed, "failed to restore mood entries", err)
	}
	if err := s.store.ReplaceSessions(snapshot.Sessions); err != nil {
		return apperrors.Wrap(apperrors.ErrImportFailed, "failed to restore activity sessions", err)
	}
	if snapshot.Preferences != nil {
		if err := s.store.SavePreferences(snapshot.Preferences); err != nil {
			return apperrors.Wrap(apperrors.ErrImportFailed, "failed to restore preferences", err)
		}
	}
	return nil
}

// createArchive tars and gzips every file under sourceDir into targetPath.
func createArchive(sourceDir, targetPath string) (int64, error) {
	tempPath := targetPath + ".tmp"

	outFile, err := os.Create(tempPath)
	if err != nil {
		return 0, err
	}
	defer outFile.Close()

	gzw := gzip.NewWriter(outFile)
	tw := tar.NewWriter(gzw)

	err = filepath.Walk(sourceDir, func(file string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return nil
		}

		header, err := tar.FileInfoHeader(fi, fi.Name())
		if err != nil {
			return err
		}
		relPath, err := filepath.Rel(sourceDir, file)
		if err != nil {
			return err
		}
		header.Name = relPath

		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		data, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		_, err = tw.Write(data)
		return err
	})
	if err != nil {
		return 0, err
	}

	if err := tw.Close(); err != nil {
		return 0, err
	}
	if err := gzw.Close(); err != nil {
		return 0, err
	}
	if err := outFile.Close(); err != nil {
		return 0, err
	}

	info, err := os.Stat(tempPath)
	if err != nil {
		return 0, err
	}
	if err := os.Rename(tempPath, targetPath); err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// extractArchive unpacks a tar.gz into targetDir, rejecting entries that
// would escape it.
func extractArchive(archivePath, targetDir string) error {
	inFile, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer inFile.Close()

	gzr, err := gzip.NewReader(inFile)
	if err != nil {
		return fmt.Errorf("not a gzip archive: %w", err)
	}
	defer gzr.Close()

	tr := tar.NewReader(gzr)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("corrupt tar stream: %w", err)
		}

		target := filepath.Join(targetDir, filepath.Clean(header.Name))
		if !strings.HasPrefix(target, filepath.Clean(targetDir)+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry escapes target directory: %s", header.Name)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}
			outFile, err := os.Create(target)
			if err != nil {
				return err
			}
			if _, err := io.Copy(outFile, tr); err != nil {
				outFile.Close()
				return err
			}
			if err := outFile.Close(); err != nil {
				return err
			}
		}
	}
}

func readManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, err
	}
	return &manifest, nil
}

// verifyChecksum compares a file's sha256 against the expected hex digest.
func verifyChecksum(path, expected string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	actual := fmt.Sprintf("%x", sha256.Sum256(data))
	if actual != expected {
		return fmt.Errorf("checksum mismatch: expected %s, got %s", expected, actual)
	}
	return nil
}
