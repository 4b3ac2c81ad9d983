package worker

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/akolanti/PortfolioRAG/internal/config"
	"github.com/akolanti/PortfolioRAG/internal/job"
	"github.com/akolanti/PortfolioRAG/internal/metrics"
	"github.com/akolanti/PortfolioRAG/internal/rag"
	"github.com/akolanti/PortfolioRAG/pkg/logger_i"
)

// Pool drains the ingestion queue. It keeps minWorkers alive, grows by one
// worker per dispatcher signal up to maxWorkers, and retires workers above
// the minimum after idleTimeout without work.
type Pool struct {
	jobs        *job.Service
	service     rag.Service
	stop        chan bool
	group       *sync.WaitGroup
	workerCount int64
	minWorkers  int64
	maxWorkers  int64
	idleTimeout time.Duration
	jobTimeout  time.Duration
	logger      *logger_i.Logger
}

type Options struct {
	MinWorkers  int64
	MaxWorkers  int64
	IdleTimeout time.Duration
	JobTimeout  time.Duration
}

func DefaultOptions() Options {
	return Options{
		MinWorkers:  config.MinWorkerCount,
		MaxWorkers:  config.MaxWorkerCount,
		IdleTimeout: config.IdleWorkerTimeout,
		JobTimeout:  config.IngestTimeout,
	}
}

// NewPool builds a pool. Closing stop retires every worker; group is done
// once all of them have exited.
func NewPool(jobs *job.Service, service rag.Service, stop chan bool, group *sync.WaitGroup, opts Options) *Pool {
	return &Pool{
		jobs:        jobs,
		service:     service,
		stop:        stop,
		group:       group,
		minWorkers:  max(opts.MinWorkers, 1),
		maxWorkers:  max(opts.MaxWorkers, opts.MinWorkers, 1),
		idleTimeout: opts.IdleTimeout,
		jobTimeout:  opts.JobTimeout,
		logger:      logger_i.NewLogger("worker_pool"),
	}
}

func (p *Pool) Start() {
	p.logger.Info("Initializing worker pool", "min", p.minWorkers, "max", p.maxWorkers)
	for range p.minWorkers {
		p.createWorker()
	}
	go p.dispatcher()
}

func (p *Pool) WorkerCount() int64 {
	return atomic.LoadInt64(&p.workerCount)
}

func (p *Pool) dispatcher() {
	p.logger.Info("Dispatcher started")
	for {
		select {
		case <-p.jobs.DispatcherChannel:
			if p.WorkerCount() < p.maxWorkers {
				p.createWorker()
			}
		case <-p.stop:
			return
		}
	}
}

func (p *Pool) createWorker() {
	p.group.Add(1)
	count := atomic.AddInt64(&p.workerCount, 1)
	metrics.IncrementActiveWorkerCount()
	p.logger.Info("Created new worker", "workerCount", count)
	go p.worker()
}

func (p *Pool) worker() {
	idle := time.NewTimer(p.idleTimeout)
	defer idle.Stop()
	for {
		select {
		case currentJob := <-p.jobs.JobChannel:
			metrics.DecrementJobsInQueue()
			p.executeJob(currentJob)
			idle.Reset(p.idleTimeout)

		case <-p.stop:
			atomic.AddInt64(&p.workerCount, -1)
			p.removeWorker("Stop worker signal received")
			return

		case <-idle.C:
			if p.tryRetire() {
				p.removeWorker("Idle worker timeout")
				return
			}
			idle.Reset(p.idleTimeout)
		}
	}
}

// tryRetire claims one slot above the minimum.
func (p *Pool) tryRetire() bool {
	for {
		count := atomic.LoadInt64(&p.workerCount)
		if count <= p.minWorkers {
			return false
		}
		if atomic.CompareAndSwapInt64(&p.workerCount, count, count-1) {
			return true
		}
	}
}

// removeWorker runs after the worker's slot has been released.
func (p *Pool) removeWorker(reason string) {
	metrics.DecrementActiveWorkerCount()
	p.logger.Info("Removed worker", "reason", reason, "workerCount", p.WorkerCount())
	p.group.Done()
}
