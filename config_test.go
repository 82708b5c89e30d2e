package dispatch

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ygrebnov/dispatch/metrics"
)

func TestDefaultConfig_Values(t *testing.T) {
	cfg := defaultConfig()
	require.Nil(t, cfg.Final)
	require.Zero(t, cfg.Workload)
	require.Zero(t, cfg.ThreadLimit)
	require.Equal(t, time.Millisecond, cfg.SleepTime)
	require.Zero(t, cfg.TTL)
	require.False(t, cfg.PlanningMode)
	require.False(t, cfg.RunAsync)
	require.False(t, cfg.WriteConsole)
	require.NotNil(t, cfg.Console)
	require.False(t, cfg.StopOnError)
	require.Nil(t, cfg.SpawnLimiter)
	require.NotNil(t, cfg.Logger)
	require.Equal(t, metrics.Noop{}, cfg.Metrics)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config)
		wantErr bool
	}{
		{name: "defaults have no workload", mutate: func(*config) {}, wantErr: true},
		{name: "negative workload", mutate: func(c *config) { c.Workload = -3 }, wantErr: true},
		{name: "positive workload", mutate: func(c *config) { c.Workload = 1 }},
		{name: "negative thread limit", mutate: func(c *config) { c.Workload = 1; c.ThreadLimit = -1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(&cfg)
			err := validateConfig(&cfg)
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.True(t, errors.Is(err, ErrInvalidConfig), "got %v", err)
		})
	}
}

func TestOptions_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{name: "WithThreadLimit(0)", opt: WithThreadLimit(0)},
		{name: "WithThreadLimit(-1)", opt: WithThreadLimit(-1)},
		{name: "WithSleepTime(-1)", opt: WithSleepTime(-time.Millisecond)},
		{name: "WithTTL(0)", opt: WithTTL(0)},
		{name: "WithConsole(nil)", opt: WithConsole(nil)},
		{name: "WithSpawnRate(0, 1)", opt: WithSpawnRate(0, 1)},
		{name: "WithSpawnRate(1, 0)", opt: WithSpawnRate(1, 0)},
		{name: "WithLogger(nil)", opt: WithLogger(nil)},
		{name: "WithMetrics(nil)", opt: WithMetrics(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := New(WorkerFunc(func(int) {}), tt.opt)
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrInvalidConfig), "got %v", err)
			require.Nil(t, d)
		})
	}
}

func TestOptions_Apply(t *testing.T) {
	var buf bytes.Buffer
	finalCalled := false
	m := metrics.NewMemory()

	d, err := New(
		WorkerFunc(func(int) {}),
		nil, // nil options are skipped
		WithWorkload(7),
		WithFinal(func() { finalCalled = true }),
		WithThreadLimit(3),
		WithSleepTime(0),
		WithTTL(time.Minute),
		WithPlanningMode(),
		WithRunAsync(),
		WithConsole(&buf),
		WithStopOnError(),
		WithSpawnRate(100, 2),
		WithMetrics(m),
	)
	require.NoError(t, err)

	cfg := d.cfg
	require.Equal(t, 7, cfg.Workload)
	require.Equal(t, 3, cfg.ThreadLimit)
	require.Zero(t, cfg.SleepTime)
	require.Equal(t, time.Minute, cfg.TTL)
	require.True(t, cfg.PlanningMode)
	require.True(t, cfg.RunAsync)
	require.True(t, cfg.WriteConsole)
	require.Same(t, &buf, cfg.Console)
	require.True(t, cfg.StopOnError)
	require.NotNil(t, cfg.SpawnLimiter)
	require.Same(t, m, cfg.Metrics)
	require.NotNil(t, d.wd)
	require.NotNil(t, d.console)

	cfg.Final()
	require.True(t, finalCalled)
}

func TestWithWriteConsole_DefaultsToStdout(t *testing.T) {
	d, err := New(WorkerFunc(func(int) {}), WithWriteConsole())
	require.NoError(t, err)
	require.True(t, d.cfg.WriteConsole)
	require.NotNil(t, d.console)
}
