package settings

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/go-git/go-billy/v5"
)

// Selector produces the settings to publish with. A nil result with a nil
// error means the selection was cancelled and nothing should be published.
type Selector func(ctx context.Context) (*Settings, error)

// FileSelector selects the settings stored at path. A missing file counts
// as a cancelled selection.
func FileSelector(fs billy.Filesystem, path string) Selector {
	return func(ctx context.Context) (*Settings, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		_, err := fs.Stat(path)
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("stat settings %q: %w", path, err)
		}
		return Load(fs, path)
	}
}

// StaticSelector always selects a copy of s. A nil s always cancels.
func StaticSelector(s *Settings) Selector {
	return func(ctx context.Context) (*Settings, error) {
		return s.Clone(), nil
	}
}
