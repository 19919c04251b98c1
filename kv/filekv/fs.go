package filekv

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// backupPath returns the path of the backup file for a data file.
func backupPath(file string) string {
	return filepath.Join(filepath.Dir(file), filepath.Base(file)+".bak")
}

// createFileBackup copies file to its backup path, overwriting any existing
// backup. If file does not exist, the returned error satisfies os.IsNotExist.
//
// Returns the path to the new backup file.
func createFileBackup(file string) (string, error) {
	buPath := backupPath(file)

	rf, err := os.Open(file)
	if err != nil {
		if os.IsNotExist(err) {
			return buPath, err
		}
		return buPath, fmt.Errorf("open original: %w", err)
	}
	defer rf.Close()

	wf, err := os.Create(buPath)
	if err != nil {
		return buPath, fmt.Errorf("create backup: %w", err)
	}
	defer wf.Close()

	w := bufio.NewWriter(wf)
	if _, err := io.Copy(w, bufio.NewReader(rf)); err != nil {
		return buPath, fmt.Errorf("copy data to backup: %w", err)
	}
	if err := w.Flush(); err != nil {
		return buPath, fmt.Errorf("copy data to backup: %w", err)
	}

	return buPath, nil
}

// RestoreBackup replaces file with its backup, if one exists. It is used to
// recover from a write that was interrupted partway through. Returns whether a
// backup was found and restored.
func RestoreBackup(file string) (bool, error) {
	buPath := backupPath(file)

	if _, err := os.Stat(buPath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	if err := os.Rename(buPath, file); err != nil {
		return false, fmt.Errorf("restore backup: %w", err)
	}
	return true, nil
}
