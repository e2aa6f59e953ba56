// Package inference runs the external imputation model: the known fields of
// a scope's titles are uploaded as CSV, a job is submitted and polled, and the
// result CSV is parsed back into one candidate triple per title.
package inference

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/domain"
	domainerrors "github.com/ohadschn/HowLongToBeatSteam-sub000/internal/errors"
	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/genre"
	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/id"
	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/logger"
)

const (
	DefaultPollInterval = 5 * time.Second
	DefaultTimeout      = 10 * time.Minute
)

// Service submits inference jobs through a Client.
type Service struct {
	client       *Client
	pollInterval time.Duration
	timeout      time.Duration
	logger       *slog.Logger
}

// NewService creates a service. Zero durations fall back to the defaults.
func NewService(client *Client, pollInterval, timeout time.Duration, log *slog.Logger) *Service {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Service{
		client:       client,
		pollInterval: pollInterval,
		timeout:      timeout,
		logger:       log,
	}
}

// Infer returns one candidate triple per title, in input order.
//
// Failures are reported as domain errors: CodeImputationTimeout when the job
// does not finish in time, CodeInferenceFailed for everything else. A
// cancelled ctx is returned unchanged.
func (s *Service) Infer(ctx context.Context, scope string, titles []*domain.Title) ([]domain.Times, error) {
	if len(titles) == 0 {
		return nil, nil
	}
	log := s.logger.With(logger.Scope(scope))

	input, err := EncodeInput(titles)
	if err != nil {
		return nil, s.failed(ctx, "encode", scope, err)
	}

	name, err := id.BlobName(genre.Slugify(scope))
	if err != nil {
		return nil, s.failed(ctx, "upload", scope, err)
	}

	location, err := s.client.UploadBlob(ctx, name, input)
	if err != nil {
		return nil, s.failed(ctx, "upload", scope, err)
	}

	jobID, err := s.client.SubmitJob(ctx, location)
	if err != nil {
		return nil, s.failed(ctx, "submit", scope, err)
	}
	log.Info("inference job submitted",
		slog.String("job_id", jobID),
		slog.String("input", location),
		slog.Int("rows", len(titles)),
	)

	job, err := s.await(ctx, scope, jobID)
	if err != nil {
		return nil, err
	}

	switch job.Status {
	case StatusFinished:
	case StatusFailed:
		return nil, domainerrors.InferenceFailedf("inference job %s failed: %s", jobID, job.Details)
	default:
		return nil, domainerrors.InferenceFailedf("inference job %s ended with status %s", jobID, job.Status)
	}

	data, err := s.client.DownloadBlob(ctx, job.Result)
	if err != nil {
		return nil, s.failed(ctx, "download", scope, err)
	}

	times, err := ParseResult(data, len(titles))
	if err != nil {
		return nil, s.failed(ctx, "parse", scope, err)
	}

	log.Info("inference job finished", slog.String("job_id", jobID))
	return times, nil
}

// await polls the job until it reaches a terminal status or the service
// timeout elapses.
func (s *Service) await(ctx context.Context, scope, jobID string) (*Job, error) {
	pollCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		job, err := s.client.GetJob(pollCtx, jobID)
		switch {
		case err == nil && job.Status.Terminal():
			return job, nil
		case err == nil:
			s.logger.Debug("inference job pending",
				slog.String("job_id", jobID),
				slog.String("status", string(job.Status)),
			)
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case pollDeadlineReached(pollCtx, err):
			return nil, s.deadlineErr(ctx, pollCtx, jobID)
		default:
			return nil, s.failed(ctx, "status", scope, err)
		}

		select {
		case <-pollCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, s.timedOut(jobID)
		case <-ticker.C:
		}
	}
}

// pollDeadlineReached reports whether a failed poll was cut short by the poll
// deadline rather than by the service. The deadline can pass, or be refused
// by the limiter, before pollCtx reports it.
func pollDeadlineReached(pollCtx context.Context, err error) bool {
	if pollCtx.Err() != nil || errors.Is(err, errWaitDeadline) {
		return true
	}
	deadline, ok := pollCtx.Deadline()
	return ok && !time.Now().Before(deadline)
}

// deadlineErr attributes a reached poll deadline to the caller when its own
// deadline is the earlier one.
func (s *Service) deadlineErr(ctx, pollCtx context.Context, jobID string) error {
	if parent, ok := ctx.Deadline(); ok {
		if own, _ := pollCtx.Deadline(); !parent.After(own) {
			return context.DeadlineExceeded
		}
	}
	return s.timedOut(jobID)
}

func (s *Service) timedOut(jobID string) error {
	return domainerrors.ImputationTimeoutf("inference job %s did not finish within %s", jobID, s.timeout)
}

func (s *Service) failed(ctx context.Context, op, scope string, err error) error {
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return ctx.Err()
	}
	if errors.Is(err, errWaitDeadline) {
		return context.DeadlineExceeded
	}
	return domainerrors.ErrInferenceFailed.WithCause(wrapError(op, scope, err))
}
