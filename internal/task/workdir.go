package task

import (
	"errors"
	"fmt"
	"os"
)

// WithWorkDir runs fn with the process working directory switched to dir and restores
// the previous one afterwards, on every exit path. Empty or missing directories run fn
// on the current directory.
func WithWorkDir(dir string, fn func() error) (err error) {
	if dir == "" {
		return fn()
	}
	if info, statErr := os.Stat(dir); statErr != nil || !info.IsDir() {
		return fn()
	}

	saved, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("could not get working directory: %w", err)
	}
	if err := os.Chdir(dir); err != nil {
		return fmt.Errorf("could not change to %s: %w", dir, err)
	}
	defer func() {
		if rErr := os.Chdir(saved); rErr != nil {
			err = errors.Join(err, fmt.Errorf("could not restore working directory %s: %w", saved, rErr))
		}
	}()

	return fn()
}
