package scheduler

import "errors"

// Scheduler errors
var (
	ErrJobNotFound     = errors.New("job not found")
	ErrJobFuncNil      = errors.New("job function is nil")
	ErrInvalidSchedule = errors.New("invalid cron schedule")
	ErrQueueFull       = errors.New("job queue is full")
	ErrJobCancelled    = errors.New("job was cancelled")
)
