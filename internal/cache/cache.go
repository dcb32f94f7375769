// Package cache provides small on-disk caches for fetched FDA pages and for
// generated answers. Both are keyed by sha256 digests and need no eviction
// beyond age-based purging.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
)

// dirMode and fileMode return permissions for cache directories and files.
// Strict mode keeps cached regulatory pages and answers private to the user.
func dirMode(strict bool) os.FileMode {
	if strict {
		return 0o700
	}
	return 0o755
}

func fileMode(strict bool) os.FileMode {
	if strict {
		return 0o600
	}
	return 0o644
}

func ensureDir(dir string, strict bool) error {
	if dir == "" {
		return errors.New("cache dir not configured")
	}
	if err := os.MkdirAll(dir, dirMode(strict)); err != nil {
		return err
	}
	// MkdirAll leaves an existing directory alone; tighten it when asked.
	if strict {
		if info, err := os.Stat(dir); err == nil && info.Mode()&0o777 != 0o700 {
			_ = os.Chmod(dir, 0o700)
		}
	}
	return nil
}

func digest(parts ...string) string {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte("\n\n"))
		}
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}
