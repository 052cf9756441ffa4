package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/planmate/internal/metrics"
	"github.com/hitoshi/planmate/internal/model"
	"github.com/hitoshi/planmate/internal/userlock"
)

func newTestService(tasks *fakeTasks, log *fakeLog, m Model, timeout time.Duration) *Service {
	builder := NewContextBuilder(tasks, log, 0, time.UTC)
	builder.SetClock(fixedClock(time.Date(2026, 2, 2, 8, 0, 0, 0, time.UTC)))
	return NewService(builder, log, m, userlock.New(), metrics.NopCollector{}, timeout)
}

func TestService_HandleTurn_TextReply(t *testing.T) {
	log := newFakeLog()
	var gotInstructions, gotPayload string
	m := &mockModel{invokeFn: func(ctx context.Context, si, payload string) (string, error) {
		gotInstructions, gotPayload = si, payload
		return "How long can you study each day?", nil
	}}
	svc := newTestService(newFakeTasks(), log, m, time.Second)

	res, err := svc.HandleTurn(context.Background(), "alice", "I have a math test Friday")
	if err != nil {
		t.Fatalf("HandleTurn returned error: %v", err)
	}
	if res.Degraded || res.Reply.Kind != TextReply {
		t.Errorf("result = %+v, want non-degraded TextReply", res)
	}
	if gotInstructions != SystemInstructions {
		t.Error("system instructions were not passed to the model")
	}

	var payload Payload
	if err := json.Unmarshal([]byte(gotPayload), &payload); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if payload.UserInput != "I have a math test Friday" {
		t.Errorf("user_input = %q", payload.UserInput)
	}
	if len(payload.ChatHistory) != 0 {
		t.Errorf("chat_history = %v, want empty (latest input is sent separately)", payload.ChatHistory)
	}

	turns := log.turns["alice"]
	if len(turns) != 2 {
		t.Fatalf("logged turns = %d, want 2", len(turns))
	}
	if turns[0].Sender != model.SenderUser || turns[0].Message != "I have a math test Friday" {
		t.Errorf("turn[0] = %+v", turns[0])
	}
	if turns[1].Sender != model.SenderAI || turns[1].Message != "How long can you study each day?" {
		t.Errorf("turn[1] = %+v", turns[1])
	}
}

func TestService_HandleTurn_TaskBatchIsLoggedVerbatim(t *testing.T) {
	log := newFakeLog()
	raw := `[{"date":"2026-02-02","start_time":"14:00","end_time":"15:00","task":"Study math","source":"AI"}]`
	m := &mockModel{invokeFn: func(ctx context.Context, si, payload string) (string, error) {
		return raw, nil
	}}
	svc := newTestService(newFakeTasks(), log, m, time.Second)

	res, err := svc.HandleTurn(context.Background(), "alice", "Plan my afternoon")
	if err != nil {
		t.Fatalf("HandleTurn returned error: %v", err)
	}
	if res.Reply.Kind != TaskBatch || len(res.Reply.Items) != 1 {
		t.Errorf("reply = %+v, want TaskBatch with 1 item", res.Reply)
	}
	if got := log.turns["alice"][1].Message; got != raw {
		t.Errorf("AI turn = %q, want verbatim %q", got, raw)
	}
}

func TestService_HandleTurn_SecondTurnSeesHistory(t *testing.T) {
	log := newFakeLog()
	var payloads []string
	m := &mockModel{invokeFn: func(ctx context.Context, si, payload string) (string, error) {
		payloads = append(payloads, payload)
		return "ok", nil
	}}
	svc := newTestService(newFakeTasks(), log, m, time.Second)

	for _, in := range []string{"first", "second"} {
		if _, err := svc.HandleTurn(context.Background(), "alice", in); err != nil {
			t.Fatalf("HandleTurn returned error: %v", err)
		}
	}

	var p Payload
	if err := json.Unmarshal([]byte(payloads[1]), &p); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if len(p.ChatHistory) != 2 || p.ChatHistory[0].Message != "first" || p.ChatHistory[1].Message != "ok" {
		t.Errorf("chat_history = %+v, want [first ok]", p.ChatHistory)
	}
}

func TestService_HandleTurn_ModelFailureLogsNothing(t *testing.T) {
	log := newFakeLog()
	reg := prometheus.NewRegistry()
	m := &mockModel{invokeFn: func(ctx context.Context, si, payload string) (string, error) {
		return "", errors.New("503 from upstream")
	}}
	builder := NewContextBuilder(newFakeTasks(), log, 0, time.UTC)
	svc := NewService(builder, log, m, userlock.New(), metrics.NewCollector(reg), time.Second)

	res, err := svc.HandleTurn(context.Background(), "alice", "hello")
	if err != nil {
		t.Fatalf("HandleTurn returned error: %v", err)
	}
	if !res.Degraded || res.Reply.Kind != TextReply || res.Reply.Raw != UnavailableMessage {
		t.Errorf("result = %+v, want degraded unavailable reply", res)
	}
	if len(log.turns["alice"]) != 0 {
		t.Errorf("logged turns = %d, want 0", len(log.turns["alice"]))
	}

	families, _ := reg.Gather()
	found := false
	for _, mf := range families {
		if mf.GetName() == "planmate_model_failures_total" {
			found = true
			if mf.GetMetric()[0].GetLabel()[0].GetValue() != metrics.FailureError {
				t.Errorf("failure reason = %q, want %q", mf.GetMetric()[0].GetLabel()[0].GetValue(), metrics.FailureError)
			}
		}
	}
	if !found {
		t.Error("planmate_model_failures_total not recorded")
	}
}

func TestService_HandleTurn_TimeoutIsBounded(t *testing.T) {
	log := newFakeLog()
	m := &mockModel{invokeFn: func(ctx context.Context, si, payload string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	svc := newTestService(newFakeTasks(), log, m, 20*time.Millisecond)

	start := time.Now()
	res, err := svc.HandleTurn(context.Background(), "alice", "hello")
	if err != nil {
		t.Fatalf("HandleTurn returned error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("HandleTurn took %v, want bounded by timeout", elapsed)
	}
	if !res.Degraded {
		t.Error("expected degraded result on timeout")
	}
	if len(log.turns["alice"]) != 0 {
		t.Errorf("logged turns = %d, want 0", len(log.turns["alice"]))
	}
}

func TestService_HandleTurn_StorageErrorOnAppend(t *testing.T) {
	log := newFakeLog()
	log.appendErr = &model.StorageError{Op: "append chat turn", Err: errors.New("disk full")}
	m := &mockModel{invokeFn: func(ctx context.Context, si, payload string) (string, error) {
		return "hi", nil
	}}
	svc := newTestService(newFakeTasks(), log, m, time.Second)

	_, err := svc.HandleTurn(context.Background(), "alice", "hello")

	var storageErr *model.StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("error = %v, want *model.StorageError", err)
	}
	if len(log.turns["alice"]) != 0 {
		t.Errorf("logged turns = %d, want 0 (no orphan user turn)", len(log.turns["alice"]))
	}
}

func TestService_HandleTurn_CanceledAfterReplyStillLogsExchange(t *testing.T) {
	log := newFakeLog()
	ctx, cancel := context.WithCancel(context.Background())
	m := &mockModel{invokeFn: func(_ context.Context, si, payload string) (string, error) {
		cancel()
		return "hi", nil
	}}
	svc := newTestService(newFakeTasks(), log, m, time.Second)

	if _, err := svc.HandleTurn(ctx, "alice", "hello"); err != nil {
		t.Fatalf("HandleTurn returned error: %v", err)
	}

	got := log.turns["alice"]
	if len(got) != 2 {
		t.Fatalf("logged turns = %d, want 2", len(got))
	}
	if got[0].Sender != model.SenderUser || got[1].Sender != model.SenderAI {
		t.Errorf("senders = %s, %s, want user, ai", got[0].Sender, got[1].Sender)
	}
}

func TestService_HandleTurn_SerializesSameUser(t *testing.T) {
	log := newFakeLog()
	var inFlight, maxInFlight int32
	m := &mockModel{invokeFn: func(ctx context.Context, si, payload string) (string, error) {
		n := atomic.AddInt32(&inFlight, 1)
		defer atomic.AddInt32(&inFlight, -1)
		for {
			cur := atomic.LoadInt32(&maxInFlight)
			if n <= cur || atomic.CompareAndSwapInt32(&maxInFlight, cur, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return "ok", nil
	}}
	svc := newTestService(newFakeTasks(), log, m, time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.HandleTurn(context.Background(), "alice", "hi"); err != nil {
				t.Errorf("HandleTurn returned error: %v", err)
			}
		}()
	}
	wg.Wait()

	if maxInFlight != 1 {
		t.Errorf("max concurrent model calls for one user = %d, want 1", maxInFlight)
	}

	// 各ターンはユーザーとAIの2件が連続して記録される
	turns := log.turns["alice"]
	if len(turns) != 10 {
		t.Fatalf("logged turns = %d, want 10", len(turns))
	}
	for i := 0; i < len(turns); i += 2 {
		if turns[i].Sender != model.SenderUser || turns[i+1].Sender != model.SenderAI {
			t.Errorf("turns %d,%d = %s,%s, want User,AI", i, i+1, turns[i].Sender, turns[i+1].Sender)
		}
	}
}

func TestService_HandleTurn_DifferentUsersRunInParallel(t *testing.T) {
	release := make(chan struct{})
	var started int32
	m := &mockModel{invokeFn: func(ctx context.Context, si, payload string) (string, error) {
		atomic.AddInt32(&started, 1)
		<-release
		return "ok", nil
	}}
	svc := newTestService(newFakeTasks(), newFakeLog(), m, 5*time.Second)

	var wg sync.WaitGroup
	for _, user := range []string{"alice", "bob"} {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			_, _ = svc.HandleTurn(context.Background(), u, "hi")
		}(user)
	}

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&started) < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	close(release)
	wg.Wait()

	if started != 2 {
		t.Errorf("concurrent model calls = %d, want 2", started)
	}
}
