package transfer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/nerrad567/bambu-core/internal/infrastructure/ftps"
	"github.com/nerrad567/bambu-core/internal/job"
)

var errNoThumbnail = errors.New("no camera thumbnail on printer")

func thumbnailPrefix(j *job.Job) string {
	return "latest-thumbnail-" + j.ID() + "-"
}

// refreshThumbnail downloads the newest camera thumbnail for j. Failures
// are logged; the next update tries again.
func (s *Service) refreshThumbnail(j *job.Job) {
	ctx, ok := s.jobContext(j)
	if !ok {
		return
	}

	local, err := s.downloadNewestThumbnail(ctx, j)
	switch {
	case err == nil:
	case errors.Is(err, errNoThumbnail):
		s.logger.Debug("no camera thumbnail yet", "job", j.ID())
		return
	case ctx.Err() != nil, errors.Is(err, ftps.ErrNotConnected):
		return
	default:
		s.logger.Error("failed to fetch latest thumbnail", "job", j.ID(), "error", err)
		return
	}

	// cleanUp may already have run for j; a late file would be left behind.
	if ctx.Err() != nil {
		os.Remove(local) //nolint:errcheck // Job ended during download
		return
	}
	previous := j.LatestThumbnail()
	j.UpdateThumbnail(local)
	if previous != "" && previous != local {
		os.Remove(previous) //nolint:errcheck // Superseded thumbnail
	}
}

func (s *Service) downloadNewestThumbnail(ctx context.Context, j *job.Job) (string, error) {
	if s.transportClosed(ctx) {
		return "", ftps.ErrNotConnected
	}

	var entries []ftps.Entry
	err := s.run(ctx, func(ctx context.Context) error {
		var err error
		entries, err = s.transport.List(ctx, RemoteThumbnailDir)
		return err
	})
	if err != nil {
		return "", err
	}

	newest, ok := newestFile(entries)
	if !ok {
		return "", errNoThumbnail
	}

	local := filepath.Join(s.cfg.ScratchDir,
		fmt.Sprintf("%s%d.jpg", thumbnailPrefix(j), newest.Time.UnixMilli()))
	if local == j.LatestThumbnail() {
		return local, nil
	}

	err = s.run(ctx, func(ctx context.Context) error {
		return s.transport.Download(ctx, path.Join(RemoteThumbnailDir, newest.Name), local)
	})
	if err != nil {
		return "", err
	}
	return local, nil
}

// transportClosed checks the transport state at the gate.
func (s *Service) transportClosed(ctx context.Context) bool {
	closed := true
	_ = s.run(ctx, func(context.Context) error { //nolint:errcheck // Gate error leaves closed=true
		closed = s.transport.Closed()
		return nil
	})
	return closed
}

func newestFile(entries []ftps.Entry) (ftps.Entry, bool) {
	var (
		newest ftps.Entry
		found  bool
	)
	for _, e := range entries {
		if e.Dir {
			continue
		}
		if !found || e.Time.After(newest.Time) {
			newest, found = e, true
		}
	}
	return newest, found
}
