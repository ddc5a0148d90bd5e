// Package profiling captures a CPU profile when a request turns out slow.
package profiling

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/pprof"
	"strings"
	"sync"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fllarpy/frontend-service/pkg/config"
)

// cpuProfiler abstracts runtime/pprof so tests can observe profiling calls.
type cpuProfiler interface {
	StartCPUProfile(w io.Writer) error
	StopCPUProfile()
}

type pprofProfiler struct{}

func (pprofProfiler) StartCPUProfile(w io.Writer) error { return pprof.StartCPUProfile(w) }
func (pprofProfiler) StopCPUProfile()                   { pprof.StopCPUProfile() }

// Profiler is a span processor. When a server span lasts at least the latency
// threshold it records a CPU profile of the following Duration into Dir. Each
// span name then cools down before it can trigger again.
type Profiler struct {
	config   config.ProfilingConfig
	logger   *zap.Logger
	profiler cpuProfiler

	cooldownsLock sync.Mutex
	cooldowns     map[string]time.Time

	wg sync.WaitGroup
}

var _ sdktrace.SpanProcessor = (*Profiler)(nil)

// NewProfiler returns a profiler writing to cfg.Dir, or the temp dir when unset.
func NewProfiler(cfg config.ProfilingConfig, logger *zap.Logger) *Profiler {
	if cfg.Dir == "" {
		cfg.Dir = os.TempDir()
	}
	logger.Info("Initializing on-demand profiler",
		zap.Duration("latency_threshold", cfg.LatencyThreshold),
		zap.String("dir", cfg.Dir),
	)
	return &Profiler{
		config:    cfg,
		logger:    logger.Named("profiler"),
		profiler:  pprofProfiler{},
		cooldowns: make(map[string]time.Time),
	}
}

func (p *Profiler) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

func (p *Profiler) OnEnd(span sdktrace.ReadOnlySpan) {
	if span.SpanKind() != trace.SpanKindServer {
		return
	}
	p.ProfileIfSlow(span.Name(), span.EndTime().Sub(span.StartTime()))
}

// ProfileIfSlow starts a background CPU profile for name when duration is at
// or above the threshold and name is not cooling down.
func (p *Profiler) ProfileIfSlow(name string, duration time.Duration) {
	if duration < p.config.LatencyThreshold {
		return
	}
	if !p.tryCooldown(name) {
		p.logger.Debug("Slow request during cooldown", zap.String("name", name))
		return
	}

	p.logger.Info("Latency threshold exceeded, starting CPU profile",
		zap.String("name", name),
		zap.Duration("duration", duration),
	)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.profile(name)
	}()
}

func (p *Profiler) profile(name string) {
	sanitized := strings.NewReplacer("/", "_", " ", "_").Replace(name)
	filename := filepath.Join(p.config.Dir, fmt.Sprintf("profile_%s_%d.pprof", sanitized, time.Now().Unix()))

	f, err := os.Create(filename)
	if err != nil {
		p.logger.Error("Failed to create profile file", zap.String("name", name), zap.Error(err))
		return
	}
	defer f.Close()

	if err := p.profiler.StartCPUProfile(f); err != nil {
		p.logger.Error("Failed to start CPU profile", zap.String("name", name), zap.Error(err))
		return
	}
	time.Sleep(p.config.Duration)
	p.profiler.StopCPUProfile()

	p.logger.Info("CPU profile completed", zap.String("name", name), zap.String("file", filename))
}

// tryCooldown reports whether name may be profiled now and, if so, starts its
// cooldown.
func (p *Profiler) tryCooldown(name string) bool {
	p.cooldownsLock.Lock()
	defer p.cooldownsLock.Unlock()

	if end, ok := p.cooldowns[name]; ok && time.Now().Before(end) {
		return false
	}
	p.cooldowns[name] = time.Now().Add(p.config.Cooldown)
	return true
}

// Shutdown waits for running profiles to finish or ctx to expire.
func (p *Profiler) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Profiler) ForceFlush(context.Context) error {
	return nil
}
