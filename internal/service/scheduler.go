package service

import (
	"sync"
	"time"
)

// TaskScheduler 是按大厅码为键的延迟任务抽象，
// 替代散落的 time.AfterFunc 调用；测试中用立即执行的假实现替换。
type TaskScheduler interface {
	// Schedule 为某个键安排一次延迟任务，覆盖该键上尚未触发的任务
	Schedule(key string, delay time.Duration, fn func())
	Cancel(key string)
}

type Scheduler struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		timers: make(map[string]*time.Timer),
	}
}

func (s *Scheduler) Schedule(key string, delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.timers[key]; ok {
		existing.Stop()
	}

	var timer *time.Timer

	timer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		if s.timers[key] == timer {
			delete(s.timers, key)
		}
		s.mu.Unlock()

		fn()
	})

	s.timers[key] = timer
}

func (s *Scheduler) Cancel(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.timers[key]; ok {
		existing.Stop()
		delete(s.timers, key)
	}
}
