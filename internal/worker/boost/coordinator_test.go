package boost

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hitoshi/feedboost/internal/model"
)

// mockJobRunner はJobRunnerのテスト用モック。
type mockJobRunner struct {
	runFunc func(ctx context.Context, job Job) Outcome
}

func (m *mockJobRunner) Run(ctx context.Context, job Job) Outcome {
	if m.runFunc != nil {
		return m.runFunc(ctx, job)
	}
	return Outcome{Job: job}
}

func jobsFor(accounts ...string) []Job {
	jobs := make([]Job, 0, len(accounts))
	for _, a := range accounts {
		j := newJob()
		j.Account = a
		jobs = append(jobs, j)
	}
	return jobs
}

func TestRunAll_PreservesOrderAndIsolatesFailures(t *testing.T) {
	runner := &mockJobRunner{runFunc: func(_ context.Context, job Job) Outcome {
		if job.Account == "BF" {
			return Outcome{Job: job, Err: &model.RetrievalError{Code: model.ErrCodeAuthFailed, Account: "BF", Err: errors.New("denied")}}
		}
		return Outcome{Job: job, Summary: model.Summary{Account: job.Account, Amplified: 1}}
	}}

	outcomes := RunAll(context.Background(), runner, jobsFor("BG", "BF", "BH"), 2)

	if len(outcomes) != 3 {
		t.Fatalf("outcomes = %d, want 3", len(outcomes))
	}
	for i, want := range []string{"BG", "BF", "BH"} {
		if outcomes[i].Job.Account != want {
			t.Errorf("outcomes[%d].Account = %q, want %q", i, outcomes[i].Job.Account, want)
		}
	}
	if outcomes[1].Err == nil {
		t.Error("BF should carry its error")
	}
	if outcomes[0].Err != nil || outcomes[2].Err != nil {
		t.Error("other accounts should succeed despite BF failing")
	}
}

func TestRunAll_RespectsConcurrencyLimit(t *testing.T) {
	var running, peak atomic.Int32
	runner := &mockJobRunner{runFunc: func(_ context.Context, job Job) Outcome {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		running.Add(-1)
		return Outcome{Job: job}
	}}

	RunAll(context.Background(), runner, jobsFor("A", "B", "C", "D", "E", "F"), 2)

	if p := peak.Load(); p > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", p)
	}
}

func TestRunAll_ZeroConcurrencyRunsSequentially(t *testing.T) {
	var mu sync.Mutex
	var order []string
	runner := &mockJobRunner{runFunc: func(_ context.Context, job Job) Outcome {
		mu.Lock()
		order = append(order, job.Account)
		mu.Unlock()
		return Outcome{Job: job}
	}}

	RunAll(context.Background(), runner, jobsFor("A", "B", "C"), 0)

	if strings.Join(order, ",") != "A,B,C" {
		t.Errorf("order = %v, want sequential A,B,C", order)
	}
}

func TestNewScheduler_DefaultConcurrency(t *testing.T) {
	var buf bytes.Buffer
	s := NewScheduler(&mockJobRunner{}, nil, newTestLogger(&buf), 0)
	if s.concurrency != 1 {
		t.Errorf("concurrency = %d, want 1", s.concurrency)
	}
}

func TestScheduler_RunOnce_KeepsLatestStatusPerAccount(t *testing.T) {
	var buf bytes.Buffer
	var calls atomic.Int32
	runner := &mockJobRunner{runFunc: func(_ context.Context, job Job) Outcome {
		n := calls.Add(1)
		return Outcome{Job: job, RunID: job.Account, Summary: model.Summary{Amplified: int(n)}}
	}}
	s := NewScheduler(runner, jobsFor("BG", "BF"), newTestLogger(&buf), 1)

	if got := s.Statuses(); len(got) != 0 {
		t.Errorf("Statuses before any run = %v, want empty", got)
	}

	s.RunOnce(context.Background())
	s.RunOnce(context.Background())

	statuses := s.Statuses()
	if len(statuses) != 2 {
		t.Fatalf("Statuses = %d, want 2", len(statuses))
	}
	if statuses[0].Account != "BG" || statuses[1].Account != "BF" {
		t.Errorf("order = %s,%s, want BG,BF", statuses[0].Account, statuses[1].Account)
	}
	if statuses[0].Amplified != 3 || statuses[1].Amplified != 4 {
		t.Errorf("Statuses should reflect the latest cycle: %+v", statuses)
	}
	if !strings.Contains(buf.String(), "実行サイクルが完了しました") {
		t.Errorf("サイクル完了ログが出力されること: %s", buf.String())
	}
}

func TestScheduler_Start_StopsOnCancel(t *testing.T) {
	var buf bytes.Buffer
	var calls atomic.Int32
	runner := &mockJobRunner{runFunc: func(_ context.Context, job Job) Outcome {
		calls.Add(1)
		return Outcome{Job: job}
	}}
	s := NewScheduler(runner, jobsFor("BG"), newTestLogger(&buf), 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx, time.Hour)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start should return after context cancel")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1 (initial run only)", calls.Load())
	}
}
