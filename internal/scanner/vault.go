package scanner

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Vault is the hidden per-user directory receiving quarantined files.
// Moved files get a timestamp prefix to avoid name collisions.
type Vault struct {
	dir string
}

// NewVault creates the vault directory on first use.
func NewVault(dir string) (*Vault, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create vault: %w", err)
	}
	return &Vault{dir: dir}, nil
}

// Dir returns the vault location.
func (v *Vault) Dir() string {
	return v.dir
}

// Contains reports whether a path lies inside the vault. The scanner must
// never re-scan its own quarantine destination.
func (v *Vault) Contains(path string) bool {
	rel, err := filepath.Rel(v.dir, path)
	if err != nil {
		return false
	}
	return rel == "." || !strings.HasPrefix(rel, "..")
}

// Quarantine atomically moves a file into the vault and returns its new
// location. A cross-device rename falls back to copy-then-remove.
func (v *Vault) Quarantine(path string) (string, error) {
	name := time.Now().Format("20060102_150405") + "_" + filepath.Base(path)
	dest := filepath.Join(v.dir, name)

	if err := os.Rename(path, dest); err != nil {
		if err := moveFallback(path, dest); err != nil {
			return "", fmt.Errorf("failed to move %s to vault: %w", path, err)
		}
	}

	return dest, nil
}

// overridable for tests
var removeFile = os.Remove

// moveFallback copies across devices and removes the original. On any
// failure exactly one copy of the file survives, at the original path.
func moveFallback(src, dst string) error {
	if err := copyFile(src, dst); err != nil {
		return err
	}
	if err := removeFile(src); err != nil {
		os.Remove(dst)
		return err
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
