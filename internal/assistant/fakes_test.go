package assistant

import (
	"context"
	"sync"
	"time"

	"github.com/hitoshi/planmate/internal/model"
)

// --- テスト用のインメモリ実装 ---

type fakeTasks struct {
	mu    sync.Mutex
	tasks map[string][]model.Task
	err   error
	dates []string
}

func newFakeTasks() *fakeTasks {
	return &fakeTasks{tasks: make(map[string][]model.Task)}
}

func (f *fakeTasks) add(userID string, t model.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks[userID] = append(f.tasks[userID], t)
}

func (f *fakeTasks) LoadForDate(_ context.Context, userID, date string) ([]model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dates = append(f.dates, date)
	if f.err != nil {
		return nil, f.err
	}
	var out []model.Task
	for _, t := range f.tasks[userID] {
		if t.Date == date {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakeLog struct {
	mu        sync.Mutex
	turns     map[string][]model.ChatTurn
	appendErr error
}

func newFakeLog() *fakeLog {
	return &fakeLog{turns: make(map[string][]model.ChatTurn)}
}

func (f *fakeLog) Append(_ context.Context, userID string, sender model.Sender, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.turns[userID] = append(f.turns[userID], model.ChatTurn{Sender: sender, Message: message, Timestamp: time.Now()})
	return nil
}

func (f *fakeLog) AppendExchange(_ context.Context, userID, userMessage, aiMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	now := time.Now()
	f.turns[userID] = append(f.turns[userID],
		model.ChatTurn{Sender: model.SenderUser, Message: userMessage, Timestamp: now},
		model.ChatTurn{Sender: model.SenderAI, Message: aiMessage, Timestamp: now},
	)
	return nil
}

func (f *fakeLog) LoadAll(_ context.Context, userID string) ([]model.ChatTurn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.ChatTurn(nil), f.turns[userID]...), nil
}

type mockModel struct {
	invokeFn func(ctx context.Context, systemInstructions, payload string) (string, error)
}

func (m *mockModel) Invoke(ctx context.Context, systemInstructions, payload string) (string, error) {
	return m.invokeFn(ctx, systemInstructions, payload)
}
