package scheduler

import (
	"testing"
	"time"
)

func TestSchedulerAddJob(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()
	// Should add a valid cron job without error
	if err := s.AddJob("* * * * *", func() {}); err != nil {
		t.Errorf("Expected no error adding job, got %v", err)
	}
}

func TestSchedulerAddJobInvalidExpr(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()
	if err := s.AddJob("not a cron expr", func() {}); err == nil {
		t.Error("Expected error adding invalid expression")
	}
}

func TestSchedulerAddEvery(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()
	if err := s.AddEvery(time.Minute, func() {}); err != nil {
		t.Errorf("Expected no error adding interval job, got %v", err)
	}
}
