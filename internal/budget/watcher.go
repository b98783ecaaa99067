// Package budget gates background maintenance on system load. Buffer
// replay is low-priority work; it yields when the host is busy and runs
// freely when it is quiet.
package budget

import (
	"log"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
)

// Defaults for the CPU watcher.
const (
	DefaultPollInterval = 2 * time.Second
	DefaultMaxCPU       = 75.0
	historySize         = 5
)

// sampleFunc returns the current system-wide CPU percentage. Swappable
// in tests.
type sampleFunc func() (float64, error)

func systemCPU() (float64, error) {
	percents, err := cpu.Percent(0, false)
	if err != nil {
		return 0, err
	}
	if len(percents) == 0 {
		return 0, nil
	}
	return percents[0], nil
}

// Watcher samples system CPU at an interval and answers whether
// background maintenance may run right now.
type Watcher struct {
	mu      sync.Mutex
	history []float64

	pollInterval time.Duration
	maxCPU       float64
	sample       sampleFunc

	stopChan chan struct{}
	running  bool
}

// NewWatcher creates a watcher with default tuning.
func NewWatcher() *Watcher {
	return &Watcher{
		pollInterval: DefaultPollInterval,
		maxCPU:       DefaultMaxCPU,
		sample:       systemCPU,
		stopChan:     make(chan struct{}),
	}
}

// SetThreshold configures the CPU percentage above which Allow denies.
func (w *Watcher) SetThreshold(maxCPU float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.maxCPU = maxCPU
}

// Start begins sampling in the background.
func (w *Watcher) Start() {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.stopChan = make(chan struct{})
	w.mu.Unlock()

	go w.watchLoop()
	log.Printf("[budget] started (poll=%v, max CPU %.0f%%)", w.pollInterval, w.maxCPU)
}

// Stop stops sampling.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		close(w.stopChan)
		w.running = false
	}
}

func (w *Watcher) watchLoop() {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			w.poll()
		}
	}
}

func (w *Watcher) poll() {
	pct, err := w.sample()
	if err != nil {
		log.Printf("[budget] cpu sample failed: %v", err)
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.history = append(w.history, pct)
	if len(w.history) > historySize {
		w.history = w.history[1:]
	}
}

// Allow reports whether background maintenance may run now. With no
// samples yet it allows; better to do maintenance than to starve it on
// a watcher that never started.
func (w *Watcher) Allow() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.history) == 0 {
		return true
	}
	var sum float64
	for _, v := range w.history {
		sum += v
	}
	return sum/float64(len(w.history)) < w.maxCPU
}
