package transfer

import (
	"context"
	"errors"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/klauspost/compress/zip"

	"github.com/nerrad567/bambu-core/internal/infrastructure/ftps"
	"github.com/nerrad567/bambu-core/internal/job"
	"github.com/nerrad567/bambu-core/internal/protocol"
)

var errJobEnded = errors.New("job is no longer current")

// ArchiveName returns the .3mf file name for a subtask name, which may or
// may not already carry the extension.
func ArchiveName(subtaskName string) string {
	base := strings.TrimSuffix(subtaskName, ".3mf")
	if base == "" {
		return ""
	}
	return base + ".3mf"
}

func (s *Service) onStart(j *job.Job) {
	if j.PrintType() == protocol.PrintTypeLocal {
		s.logger.Debug("skipping archive fetch for local print", "job", j.ID())
		return
	}
	ctx, ok := s.jobContext(j)
	if !ok {
		return
	}
	s.spawn(func() { s.fetchArchive(ctx, j) })
}

// fetchArchive downloads the job's archive, retrying until it succeeds, the
// server reports it missing, or the job ends.
func (s *Service) fetchArchive(ctx context.Context, j *job.Job) {
	name := ArchiveName(j.SubtaskName())
	if name == "" {
		s.logger.Warn("job has no subtask name, not fetching archive", "job", j.ID())
		return
	}

	if !sleep(ctx, s.cfg.StartGrace) {
		return
	}

	remote := path.Join(RemoteArchiveDir, name)
	local := filepath.Join(s.cfg.ScratchDir, name)

	attempt := func() (struct{}, error) {
		if !s.jobs.IsCurrent(j) {
			return struct{}{}, backoff.Permanent(errJobEnded)
		}

		err := s.run(ctx, func(ctx context.Context) error {
			if s.transport.Closed() {
				if err := s.transport.Connect(ctx); err != nil {
					return err
				}
			}
			s.logger.Debug("fetching archive", "job", j.ID(), "remote", remote)
			return s.transport.Download(ctx, remote, local)
		})
		if ftps.IsNotFound(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}

	_, err := backoff.Retry(ctx, attempt,
		backoff.WithBackOff(backoff.NewConstantBackOff(s.cfg.RetryDelay)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			s.logger.Warn("archive download failed, retrying", "job", j.ID(), "error", err, "retry_in", next)
		}),
	)
	switch {
	case err == nil:
	case ftps.IsNotFound(err):
		s.logger.Warn("print has no archive on the printer", "job", j.ID(), "remote", remote)
		return
	case errors.Is(err, errJobEnded), ctx.Err() != nil:
		s.logger.Debug("archive fetch abandoned", "job", j.ID())
		return
	default:
		s.logger.Error("archive fetch failed", "job", j.ID(), "error", err)
		return
	}

	s.enrich(ctx, j, local)
}

func (s *Service) enrich(ctx context.Context, j *job.Job, local string) {
	if ctx.Err() != nil {
		return
	}

	zr, err := zip.OpenReader(local)
	if err != nil {
		s.logger.Error("opening archive failed", "job", j.ID(), "path", local, "error", err)
		return
	}
	defer zr.Close()

	j.SetArchivePath(local)
	if err := j.UpdateZipFields(&zr.Reader); err != nil {
		s.logger.Warn("archive partially parsed", "job", j.ID(), "error", err)
	}
	s.logger.Info("job enriched from archive", "job", j.ID())
}
