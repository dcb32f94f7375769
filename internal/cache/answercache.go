package cache

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

const answersDir = "answers"

// AnswerCache stores generated answers keyed by assistant, model and prompt so
// re-running answer generation over unchanged evidence is free.
type AnswerCache struct {
	Dir         string
	StrictPerms bool
}

// AnswerKey builds a cache key from the assistant, model and full prompt.
func AnswerKey(assistantID, model, prompt string) string {
	return digest(assistantID, model, prompt)
}

func (c *AnswerCache) path(key string) string {
	return filepath.Join(c.Dir, answersDir, key+".txt")
}

// Get returns the cached answer if present.
func (c *AnswerCache) Get(_ context.Context, key string) (string, bool, error) {
	if c == nil || c.Dir == "" {
		return "", false, errors.New("cache dir not configured")
	}
	b, err := os.ReadFile(c.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(b), true, nil
}

// Save writes an answer to the cache.
func (c *AnswerCache) Save(_ context.Context, key, answer string) error {
	if c == nil {
		return errors.New("cache dir not configured")
	}
	if err := ensureDir(filepath.Join(c.Dir, answersDir), c.StrictPerms); err != nil {
		return err
	}
	return os.WriteFile(c.path(key), []byte(answer), fileMode(c.StrictPerms))
}
