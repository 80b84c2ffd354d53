package main

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Darunesh1/tds-quiz-solver/internal/config"
)

type fakeCron struct {
	started bool
	stopped bool
}

func (f *fakeCron) Start() {
	f.started = true
}

func (f *fakeCron) Stop() context.Context {
	f.stopped = true
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

type fakeHTTP struct {
	listenCalled chan struct{}
	shutdownOnce sync.Once
	shutdownCh   chan struct{}
	addr         string
}

func newFakeHTTP() *fakeHTTP {
	return &fakeHTTP{
		listenCalled: make(chan struct{}),
		shutdownCh:   make(chan struct{}),
	}
}

func (f *fakeHTTP) ListenAndServe(addr string) error {
	f.addr = addr
	close(f.listenCalled)
	<-f.shutdownCh
	return http.ErrServerClosed
}

func (f *fakeHTTP) Shutdown(context.Context) error {
	f.shutdownOnce.Do(func() { close(f.shutdownCh) })
	return nil
}

func TestRun_StartsAndShutsDownCleanly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := &config.Config{App: config.AppConfig{Port: 8000}}
	cronRunner := &fakeCron{}
	httpSrv := newFakeHTTP()

	doneCh := make(chan error, 1)
	go func() {
		doneCh <- run(ctx, cfg, cronRunner, httpSrv)
	}()

	select {
	case <-httpSrv.listenCalled:
	case <-time.After(time.Second):
		t.Fatal("server never started listening")
	}
	assert.Equal(t, "0.0.0.0:8000", httpSrv.addr)
	assert.True(t, cronRunner.started)

	cancel()

	select {
	case err := <-doneCh:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("run did not return after shutdown")
	}
	assert.True(t, cronRunner.stopped)
}
