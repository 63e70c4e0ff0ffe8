package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// CopyDistributor copies finished artifacts into the configured destination
// directories (network shares, dashboard data folders). Distribution is best
// effort: every destination is attempted and the errors are joined.
type CopyDistributor struct {
	destinations []string
	log          *logrus.Logger
}

// NewCopyDistributor creates a distributor for the given destinations. An
// empty destination list yields a distributor that does nothing.
func NewCopyDistributor(destinations []string, log *logrus.Logger) *CopyDistributor {
	if log == nil {
		log = logrus.New()
	}
	return &CopyDistributor{destinations: destinations, log: log}
}

// Distribute copies each artifact into every destination directory and
// returns how many copies were made.
func (d *CopyDistributor) Distribute(ctx context.Context, paths []string) (int, error) {
	var (
		copied int
		errs   []error
	)
	for _, dest := range d.destinations {
		if err := ctx.Err(); err != nil {
			return copied, err
		}
		if err := os.MkdirAll(dest, 0o755); err != nil {
			errs = append(errs, fmt.Errorf("destination %s: %w", dest, err))
			continue
		}
		for _, path := range paths {
			target := filepath.Join(dest, filepath.Base(path))
			if err := copyFile(path, target); err != nil {
				errs = append(errs, err)
				continue
			}
			copied++
		}
	}
	return copied, errors.Join(errs...)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}
	return out.Close()
}
