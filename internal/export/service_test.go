// Package export tests for archive export and import.
package export

import (
	"archive/tar"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/evelynmak/stillpoint/core/internal/config"
	"github.com/evelynmak/stillpoint/core/internal/db"
	apperrors "github.com/evelynmak/stillpoint/core/internal/errors"
	"github.com/evelynmak/stillpoint/core/internal/models"
	"github.com/evelynmak/stillpoint/core/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()

	tmpDir := t.TempDir()
	database, err := db.Open(tmpDir)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := db.NewMigrator(database.DB).Migrate(); err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}

	st := store.New(database, config.StoreConfig{
		MoodEntryCap: 1000, SessionCap: 500, EventLogCap: 50, DefaultRetentionDays: 30,
	})
	return NewService(st), st
}

func seedData(t *testing.T, st *store.Store) {
	t.Helper()

	moods := []*models.MoodEntry{
		{ID: "m1", Mood: "calm", Intensity: 3, CreatedAt: 100, UpdatedAt: 100},
		{ID: "m2", Mood: "anxious", Intensity: 4, Note: "long day", CreatedAt: 200, UpdatedAt: 250},
	}
	for _, m := range moods {
		if err := st.AddMoodEntry(m); err != nil {
			t.Fatalf("AddMoodEntry() failed: %v", err)
		}
	}
	if err := st.AddSession(&models.ActivitySession{
		ID: "s1", Activity: "breathing", DurationSeconds: 300, Completed: true,
		CreatedAt: 150, UpdatedAt: 150,
	}); err != nil {
		t.Fatalf("AddSession() failed: %v", err)
	}

	prefs := models.DefaultPreferences()
	prefs.ReminderHour = 20
	if err := st.SavePreferences(prefs); err != nil {
		t.Fatalf("SavePreferences() failed: %v", err)
	}
}

// TestExportCreatesArchive verifies the archive structure and manifest.
func TestExportCreatesArchive(t *testing.T) {
	service, st := newTestService(t)
	seedData(t, st)

	outPath := filepath.Join(t.TempDir(), "out.tar.gz")
	result, err := service.Export(outPath)
	if err != nil {
		t.Fatalf("Export() failed: %v", err)
	}

	if result.ItemCount != 3 {
		t.Errorf("ItemCount = %d, want 3", result.ItemCount)
	}
	if result.SizeBytes <= 0 {
		t.Error("SizeBytes should be positive")
	}
	if len(result.Checksum) != 64 {
		t.Errorf("Checksum = %q, want 64 hex chars", result.Checksum)
	}

	// Walk the archive and confirm both expected files are present
	f, err := os.Open(outPath)
	if err != nil {
		t.Fatalf("Failed to open archive: %v", err)
	}
	defer f.Close()

	gzr, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("Archive is not gzip: %v", err)
	}
	defer gzr.Close()

	found := map[string]bool{}
	tr := tar.NewReader(gzr)
	for {
		header, err := tr.Next()
		if err != nil {
			break
		}
		found[header.Name] = true

		if header.Name == "manifest.json" {
			var manifest Manifest
			if err := json.NewDecoder(tr).Decode(&manifest); err != nil {
				t.Fatalf("Failed to decode manifest: %v", err)
			}
			if manifest.Version != manifestVersion {
				t.Errorf("manifest version = %s, want %s", manifest.Version, manifestVersion)
			}
			if manifest.Checksum != result.Checksum {
				t.Error("manifest checksum does not match export result")
			}
		}
	}

	if !found["data.json"] || !found["manifest.json"] {
		t.Errorf("archive entries = %v, want data.json and manifest.json", found)
	}
}

// TestExportImportRoundTrip verifies a restore reproduces the exported data.
func TestExportImportRoundTrip(t *testing.T) {
	source, sourceStore := newTestService(t)
	seedData(t, sourceStore)

	outPath := filepath.Join(t.TempDir(), "roundtrip.tar.gz")
	if _, err := source.Export(outPath); err != nil {
		t.Fatalf("Export() failed: %v", err)
	}

	target, targetStore := newTestService(t)
	result, err := target.Import(outPath)
	if err != nil {
		t.Fatalf("Import() failed: %v", err)
	}
	if result.ImportedCount != 3 {
		t.Errorf("ImportedCount = %d, want 3", result.ImportedCount)
	}

	moods := targetStore.ListMoodEntries(0)
	if len(moods) != 2 {
		t.Fatalf("mood entries = %d, want 2", len(moods))
	}
	// Newest-first order survives the round trip
	if moods[0].Mood != "anxious" || moods[0].Note != "long day" || moods[1].Mood != "calm" {
		t.Errorf("restored moods = %+v, want original data in order", moods)
	}

	sessions := targetStore.ListSessions(0)
	if len(sessions) != 1 || sessions[0].Activity != "breathing" {
		t.Errorf("restored sessions = %+v, want original data", sessions)
	}

	prefs := targetStore.Preferences()
	if prefs.ReminderHour != 20 {
		t.Errorf("restored ReminderHour = %d, want 20", prefs.ReminderHour)
	}
}

// TestImportReplacesExistingData verifies wholesale replacement.
func TestImportReplacesExistingData(t *testing.T) {
	source, sourceStore := newTestService(t)
	seedData(t, sourceStore)

	outPath := filepath.Join(t.TempDir(), "replace.tar.gz")
	if _, err := source.Export(outPath); err != nil {
		t.Fatalf("Export() failed: %v", err)
	}

	target, targetStore := newTestService(t)
	if err := targetStore.AddMoodEntry(&models.MoodEntry{
		ID: "pre-existing", Mood: "tired", Intensity: 2, CreatedAt: 1, UpdatedAt: 1,
	}); err != nil {
		t.Fatalf("AddMoodEntry() failed: %v", err)
	}

	if _, err := target.Import(outPath); err != nil {
		t.Fatalf("Import() failed: %v", err)
	}

	for _, entry := range targetStore.ListMoodEntries(0) {
		if entry.ID == "pre-existing" {
			t.Error("import should replace pre-existing entries, not merge")
		}
	}
}

// TestImportRejectsTamperedData verifies the checksum gate.
func TestImportRejectsTamperedData(t *testing.T) {
	service, st := newTestService(t)
	seedData(t, st)

	outPath := filepath.Join(t.TempDir(), "tampered.tar.gz")
	if _, err := service.Export(outPath); err != nil {
		t.Fatalf("Export() failed: %v", err)
	}

	// Rebuild the archive with modified data.json but the original manifest
	workDir := t.TempDir()
	if err := extractArchive(outPath, workDir); err != nil {
		t.Fatalf("extractArchive() failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(workDir, "data.json"),
		[]byte(`{"mood_entries":[],"activity_sessions":[],"preferences":null}`), 0644); err != nil {
		t.Fatalf("Failed to tamper with data file: %v", err)
	}
	if _, err := createArchive(workDir, outPath); err != nil {
		t.Fatalf("createArchive() failed: %v", err)
	}

	target, _ := newTestService(t)
	_, err := target.Import(outPath)
	if err == nil {
		t.Fatal("Import() should reject a tampered archive")
	}
	if !apperrors.Is(err, apperrors.ErrCorruptedArchive) {
		t.Errorf("error code = %v, want CORRUPTED_ARCHIVE", err)
	}
}

// TestImportRejectsGarbage verifies non-archive input fails cleanly.
func TestImportRejectsGarbage(t *testing.T) {
	service, _ := newTestService(t)

	garbagePath := filepath.Join(t.TempDir(), "garbage.tar.gz")
	if err := os.WriteFile(garbagePath, []byte("this is not an archive"), 0644); err != nil {
		t.Fatalf("Failed to write garbage file: %v", err)
	}

	_, err := service.Import(garbagePath)
	if err == nil {
		t.Fatal("Import() should reject a non-archive file")
	}
	if !apperrors.Is(err, apperrors.ErrCorruptedArchive) {
		t.Errorf("error code = %v, want CORRUPTED_ARCHIVE", err)
	}
}

// TestExportEmptyStore verifies an export with no data still succeeds.
func TestExportEmptyStore(t *testing.T) {
	service, _ := newTestService(t)

	outPath := filepath.Join(t.TempDir(), "empty.tar.gz")
	result, err := service.Export(outPath)
	if err != nil {
		t.Fatalf("Export() of an empty store failed: %v", err)
	}
	if result.ItemCount != 0 {
		t.Errorf("ItemCount = %d, want 0", result.ItemCount)
	}

	target, _ := newTestService(t)
	if _, err := target.Import(outPath); err != nil {
		t.Errorf("Import() of an empty archive failed: %v", err)
	}
}

// TestSnapshotRoundTrip verifies the in-memory dataset transfer without
// an archive in between.
func TestSnapshotRoundTrip(t *testing.T) {
	source, sourceStore := newTestService(t)
	seedData(t, sourceStore)

	snapshot := source.ExportData()
	if len(snapshot.MoodEntries) != 2 || len(snapshot.Sessions) != 1 {
		t.Fatalf("snapshot = %d moods, %d sessions; want 2 and 1",
			len(snapshot.MoodEntries), len(snapshot.Sessions))
	}

	target, targetStore := newTestService(t)
	if err := target.ImportData(snapshot); err != nil {
		t.Fatalf("ImportData() failed: %v", err)
	}

	again := target.ExportData()
	if len(again.MoodEntries) != 2 || len(again.Sessions) != 1 {
		t.Errorf("re-export = %d moods, %d sessions; want identical dataset",
			len(again.MoodEntries), len(again.Sessions))
	}
	if again.MoodEntries[0].ID != snapshot.MoodEntries[0].ID {
		t.Error("re-exported entries should match the imported snapshot")
	}
	if targetStore.Preferences().ReminderHour != 20 {
		t.Errorf("ReminderHour = %d, want 20", targetStore.Preferences().ReminderHour)
	}
}

// TestVerifyChecksum verifies the digest comparison.
func TestVerifyChecksum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.txt")
	content := []byte("checksum me")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	hash := sha256.Sum256(content)
	good := hex.EncodeToString(hash[:])
	if err := verifyChecksum(path, good); err != nil {
		t.Errorf("verifyChecksum() failed for a matching digest: %v", err)
	}

	bad := "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	if err := verifyChecksum(path, bad); err == nil {
		t.Error("verifyChecksum() should fail for a mismatched digest")
	}
}
