package store

import (
	"context"
	"math/rand/v2"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/DoyleJ11/duo-trivia-backend/internal/engine"
)

// Memory is a process-local store guarded by a single mutex. It backs tests
// and the "memory" driver for local runs.
type Memory struct {
	mu         sync.Mutex
	games      map[string]engine.Game
	rounds     map[string]map[int]engine.Round
	categories map[string]engine.Category
	questions  map[string]engine.Question
	users      map[string]string

	// Pick returns an index in [0, n); replaced in tests for deterministic picks.
	Pick func(n int) int
	now  func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		games:      make(map[string]engine.Game),
		rounds:     make(map[string]map[int]engine.Round),
		categories: make(map[string]engine.Category),
		questions:  make(map[string]engine.Question),
		users:      make(map[string]string),
		Pick:       rand.IntN,
		now:        time.Now,
	}
}

func (m *Memory) Close() error { return nil }

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) CreateGame(_ context.Context, g engine.Game, first engine.Round) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.games[g.ID]; ok {
		return ErrConflict
	}
	m.games[g.ID] = g
	m.rounds[g.ID] = map[int]engine.Round{first.Number: cloneRound(first)}
	return nil
}

func (m *Memory) Game(_ context.Context, id string) (engine.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.games[id]
	if !ok {
		return engine.Game{}, ErrNotFound
	}
	return g, nil
}

func (m *Memory) Round(_ context.Context, gameID string, number int) (engine.Round, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rounds[gameID][number]
	if !ok {
		return engine.Round{}, ErrNotFound
	}
	return cloneRound(r), nil
}

func (m *Memory) Scores(_ context.Context, gameID string) (engine.Scores, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var s engine.Scores
	for _, r := range m.rounds[gameID] {
		s.Player1 += r.Player1Increment
		s.Player2 += r.Player2Increment
	}
	return s, nil
}

func (m *Memory) Category(_ context.Context, id string) (engine.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.categories[id]
	if !ok {
		return engine.Category{}, ErrNotFound
	}
	return c, nil
}

func (m *Memory) Question(_ context.Context, id string) (engine.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	q, ok := m.questions[id]
	if !ok {
		return engine.Question{}, ErrNotFound
	}
	return cloneQuestion(q), nil
}

func (m *Memory) RandomQuestion(_ context.Context, categoryID string) (engine.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var pool []engine.Question
	for _, q := range m.questions {
		if q.CategoryID == categoryID {
			pool = append(pool, q)
		}
	}
	if len(pool) == 0 {
		return engine.Question{}, ErrNotFound
	}
	// Map iteration order is random; sort so Pick alone decides.
	sort.Slice(pool, func(i, j int) bool { return pool[i].ID < pool[j].ID })
	return cloneQuestion(pool[m.Pick(len(pool))]), nil
}

func (m *Memory) Usernames(_ context.Context, ids ...string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]string, len(ids))
	for _, id := range ids {
		if name, ok := m.users[id]; ok {
			out[id] = name
		}
	}
	return out, nil
}

func (m *Memory) UpdateRound(_ context.Context, gameID string, fn RoundUpdate) (engine.Round, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.games[gameID]
	if !ok {
		return engine.Round{}, ErrNotFound
	}

	var round *engine.Round
	if r, ok := m.rounds[gameID][g.CurrentRound]; ok {
		r = cloneRound(r)
		round = &r
	}
	if err := fn(g, round); err != nil {
		return engine.Round{}, err
	}
	if round == nil {
		return engine.Round{}, nil
	}
	m.rounds[gameID][round.Number] = cloneRound(*round)
	return cloneRound(*round), nil
}

func (m *Memory) AdvanceRound(_ context.Context, gameID string, from int, next engine.Round) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.games[gameID]
	if !ok {
		return ErrNotFound
	}
	if g.CurrentRound != from || g.Status != engine.StatusInProgress {
		return ErrConflict
	}
	if _, taken := m.rounds[gameID][next.Number]; taken {
		return ErrConflict
	}
	g.CurrentRound = next.Number
	g.UpdatedAt = m.now()
	m.games[gameID] = g
	m.rounds[gameID][next.Number] = cloneRound(next)
	return nil
}

func (m *Memory) CompleteGame(_ context.Context, gameID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.games[gameID]
	if !ok {
		return ErrNotFound
	}
	if g.Status == engine.StatusCompleted {
		return ErrConflict
	}
	g.Status = engine.StatusCompleted
	g.UpdatedAt = m.now()
	m.games[gameID] = g
	return nil
}

func (m *Memory) UpsertCategory(_ context.Context, c engine.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categories[c.ID] = c
	return nil
}

func (m *Memory) UpsertQuestion(_ context.Context, q engine.Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.questions[q.ID] = cloneQuestion(q)
	return nil
}

func (m *Memory) UpsertUser(_ context.Context, id, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id] = username
	return nil
}

func cloneRound(r engine.Round) engine.Round {
	r.Outcome = slices.Clone(r.Outcome)
	return r
}

func cloneQuestion(q engine.Question) engine.Question {
	q.Options = slices.Clone(q.Options)
	return q
}
