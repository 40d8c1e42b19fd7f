package scaler

import (
	"context"
	"sync"
	"time"

	"github.com/OldStager01/capacity-controller/internal/logger"
	"github.com/OldStager01/capacity-controller/pkg/models"
)

type taskState int

const (
	taskPending taskState = iota
	taskRunning
	taskStopped
)

type task struct {
	id        string
	state     taskState
	startedAt time.Time
}

type service struct {
	desired      int
	tasks        []*task
	lastModified time.Time
}

// MemoryControl is an in-process fleet model. Tasks start pending and
// become running after the provision delay; scale-in drops pending tasks
// first. Used in development mode and tests.
type MemoryControl struct {
	mu            sync.Mutex
	services      map[string]*service
	provisionTime time.Duration
	setCalls      int
	failure       error
	callbacks     Callbacks
}

type Callbacks struct {
	OnTaskRunning    func(serviceID, taskID string)
	OnDesiredChanged func(serviceID string, from, to int)
}

type MemoryControlConfig struct {
	ProvisionTime time.Duration
	Callbacks     Callbacks
}

func NewMemoryControl(cfg MemoryControlConfig) *MemoryControl {
	return &MemoryControl{
		services:      make(map[string]*service),
		provisionTime: cfg.ProvisionTime,
		callbacks:     cfg.Callbacks,
	}
}

// InitializeService registers a service with count running tasks
func (m *MemoryControl) InitializeService(serviceID string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	svc := &service{desired: count, lastModified: time.Now()}
	for i := 0; i < count; i++ {
		svc.tasks = append(svc.tasks, &task{id: models.NewUUID(), state: taskRunning, startedAt: time.Now()})
	}
	m.services[serviceID] = svc

	logger.WithService(serviceID).Infof("Initialized service with %d running tasks", count)
}

func (m *MemoryControl) GetServiceState(ctx context.Context, serviceID string) (*models.ServiceState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	svc, ok := m.services[serviceID]
	if !ok {
		return nil, ErrServiceNotFound
	}

	state := &models.ServiceState{
		ServiceID:    serviceID,
		DesiredCount: svc.desired,
		LastModified: svc.lastModified,
	}
	for _, t := range svc.tasks {
		if t.state == taskRunning {
			state.RunningCount++
		} else {
			state.PendingCount++
		}
	}
	return state, nil
}

func (m *MemoryControl) SetDesiredCount(ctx context.Context, serviceID string, count int) error {
	if count < 0 {
		return ErrInvalidTarget
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.setCalls++
	if m.failure != nil {
		return m.failure
	}

	svc, ok := m.services[serviceID]
	if !ok {
		return ErrServiceNotFound
	}

	previous := svc.desired
	svc.desired = count
	svc.lastModified = time.Now()

	for len(svc.tasks) < count {
		t := &task{id: models.NewUUID(), state: taskPending, startedAt: time.Now()}
		svc.tasks = append(svc.tasks, t)
		m.scheduleProvisioning(serviceID, t)
	}
	if len(svc.tasks) > count {
		svc.tasks = drainTasks(svc.tasks, len(svc.tasks)-count)
	}

	logger.WithService(serviceID).Infof("Desired count %d -> %d", previous, count)

	if m.callbacks.OnDesiredChanged != nil && previous != count {
		go m.callbacks.OnDesiredChanged(serviceID, previous, count)
	}
	return nil
}

func (m *MemoryControl) scheduleProvisioning(serviceID string, t *task) {
	activate := func() {
		m.mu.Lock()
		if t.state != taskPending {
			m.mu.Unlock()
			return
		}
		t.state = taskRunning
		m.mu.Unlock()

		if m.callbacks.OnTaskRunning != nil {
			m.callbacks.OnTaskRunning(serviceID, t.id)
		}
	}

	if m.provisionTime <= 0 {
		t.state = taskRunning
		return
	}
	time.AfterFunc(m.provisionTime, activate)
}

// drainTasks removes n tasks, pending ones first, newest first
func drainTasks(tasks []*task, n int) []*task {
	kept := make([]*task, 0, len(tasks)-n)
	removed := 0
	for i := len(tasks) - 1; i >= 0 && removed < n; i-- {
		if tasks[i].state == taskPending {
			tasks[i].state = taskStopped
			tasks[i] = nil
			removed++
		}
	}
	for i := len(tasks) - 1; i >= 0 && removed < n; i-- {
		if tasks[i] != nil {
			tasks[i].state = taskStopped
			tasks[i] = nil
			removed++
		}
	}
	for _, t := range tasks {
		if t != nil {
			kept = append(kept, t)
		}
	}
	return kept
}

// SetCalls returns how many times SetDesiredCount was invoked
func (m *MemoryControl) SetCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setCalls
}

// SetFailure makes subsequent SetDesiredCount calls fail with err; nil clears it
func (m *MemoryControl) SetFailure(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failure = err
}

func (m *MemoryControl) Services() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.services))
	for id := range m.services {
		ids = append(ids, id)
	}
	return ids
}

func (m *MemoryControl) Close() error {
	return nil
}
