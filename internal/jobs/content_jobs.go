package jobs

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// SystemActor is recorded as the author of revisions written by background jobs.
const SystemActor = "system:scheduler"

// Publisher publishes scheduled content whose date has passed.
type Publisher interface {
	PublishDue(ctx context.Context, actor string) ([]uint, error)
}

// Pruner trims revision histories.
type Pruner interface {
	PruneAllRevisions(ctx context.Context, keep int) (int64, error)
}

// PublishSweep publishes due scheduled content.
type PublishSweep struct {
	publisher Publisher
	schedule  string
	logger    *logrus.Logger
}

// NewPublishSweep constructs the publish sweep job.
func NewPublishSweep(publisher Publisher, schedule string, logger *logrus.Logger) *PublishSweep {
	if logger == nil {
		logger = logrus.New()
	}
	return &PublishSweep{publisher: publisher, schedule: schedule, logger: logger}
}

func (j *PublishSweep) Name() string     { return "publish-sweep" }
func (j *PublishSweep) Schedule() string { return j.schedule }

// Run publishes every due item once.
func (j *PublishSweep) Run(ctx context.Context) error {
	published, err := j.publisher.PublishDue(ctx, SystemActor)
	if err != nil {
		return eris.Wrap(err, "publishing due content")
	}
	if len(published) > 0 {
		j.logger.WithFields(logrus.Fields{"job": j.Name(), "published": len(published), "ids": published}).Info("scheduled content published")
	}
	return nil
}

// RevisionPrune keeps only the newest revisions of every owner.
type RevisionPrune struct {
	pruner   Pruner
	keep     int
	schedule string
	logger   *logrus.Logger
}

// NewRevisionPrune constructs the prune job. keep must be positive.
func NewRevisionPrune(pruner Pruner, keep int, schedule string, logger *logrus.Logger) (*RevisionPrune, error) {
	if keep <= 0 {
		return nil, eris.Errorf("revision keep must be positive, got %d", keep)
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &RevisionPrune{pruner: pruner, keep: keep, schedule: schedule, logger: logger}, nil
}

func (j *RevisionPrune) Name() string     { return "revision-prune" }
func (j *RevisionPrune) Schedule() string { return j.schedule }

// Run prunes every revision history down to the configured size.
func (j *RevisionPrune) Run(ctx context.Context) error {
	removed, err := j.pruner.PruneAllRevisions(ctx, j.keep)
	if err != nil {
		return eris.Wrap(err, "pruning revisions")
	}
	if removed > 0 {
		j.logger.WithFields(logrus.Fields{"job": j.Name(), "removed": removed, "keep": j.keep}).Info("revisions pruned")
	}
	return nil
}
