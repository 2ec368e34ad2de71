package storage

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"
)

// StartDailyBackup copies srcDir into a timestamped folder under backupDir
// every day at hour:min and removes backups older than retention. It returns
// when ctx is cancelled.
func StartDailyBackup(ctx context.Context, srcDir, backupDir string, retention time.Duration, hour, min int) {
	for {
		now := time.Now()
		next := nextRun(now, hour, min)
		log.Printf("⏳ Next upload backup scheduled at: %s", next.Format("2006-01-02 15:04:05"))

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if dest, err := BackupOnce(srcDir, backupDir, time.Now()); err != nil {
			log.Printf("❌ Failed to back up uploads: %v", err)
		} else {
			log.Printf("✅ Uploads backed up to %s", dest)
		}

		CleanupOldBackups(backupDir, time.Now().Add(-retention))
	}
}

// nextRun returns the next hour:min strictly after now.
func nextRun(now time.Time, hour, min int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, min, 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}

// BackupOnce copies srcDir to backupDir/<timestamp> and returns that path.
func BackupOnce(srcDir, backupDir string, at time.Time) (string, error) {
	destDir := filepath.Join(backupDir, at.Format("2006-01-02_15-04-05"))
	return destDir, copyDir(srcDir, destDir)
}

// copyDir recursively copies a folder
func copyDir(src, dest string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dest, 0755); err != nil {
		return err
	}
	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		destPath := filepath.Join(dest, entry.Name())

		if entry.IsDir() {
			if err := copyDir(srcPath, destPath); err != nil {
				return err
			}
		} else {
			if err := copyFile(srcPath, destPath); err != nil {
				return err
			}
		}
	}
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err = io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

// CleanupOldBackups removes backup folders last modified before cutoff.
func CleanupOldBackups(backupDir string, cutoff time.Time) {
	entries, err := os.ReadDir(backupDir)
	if err != nil {
		log.Printf("❌ Failed to read backup directory: %v", err)
		return
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		folderPath := filepath.Join(backupDir, entry.Name())
		info, err := os.Stat(folderPath)
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.RemoveAll(folderPath); err != nil {
				log.Printf("❌ Failed to remove old backup %s: %v", folderPath, err)
			} else {
				log.Printf("🗑️ Removed old backup: %s", folderPath)
			}
		}
	}
}
