package workers

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Job is one reconciliation entry point the scheduler fires on its period.
type Job interface {
	RunPass(ctx context.Context)
}

// DefaultSchedule runs the pass daily at 03:00. Any cron expression works,
// including fixed intervals such as "@every 2m".
const DefaultSchedule = "0 3 * * *"

// Scheduler invokes the reconciliation job on a wall-clock schedule.
// Overlapping passes are skipped rather than stacked.
type Scheduler struct {
	cron *cron.Cron
	job  Job
	spec string
	log  *logrus.Logger
}

func NewScheduler(job Job, spec string, log *logrus.Logger) *Scheduler {
	if spec == "" {
		spec = DefaultSchedule
	}
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.PrintfLogger(log)),
		)),
		job:  job,
		spec: spec,
		log:  log,
	}
}

// Start registers the job and begins the schedule. One pass runs immediately
// so a freshly restarted process does not wait a full period to catch up.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.job.RunPass(context.Background())
	})
	if err != nil {
		return fmt.Errorf("schedule %q: %w", s.spec, err)
	}
	go s.job.RunPass(context.Background())
	s.cron.Start()
	s.log.WithField("schedule", s.spec).Info("reconciliation scheduler started")
	return nil
}

// Stop halts the schedule and waits for a running pass to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
