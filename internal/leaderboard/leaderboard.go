// Package leaderboard keeps a per-exam ranking of submissions by percentage.
package leaderboard

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Ranking stores submission percentages per exam and answers top-N queries.
type Ranking interface {
	Record(ctx context.Context, examID, submissionID int64, percentage int) error
	Top(ctx context.Context, examID int64, limit int) ([]Entry, error)
	Rank(ctx context.Context, examID, submissionID int64) (int64, error)
	Clear(ctx context.Context, examID int64) error
}

// Entry is one position in an exam ranking. Rank is 1-indexed.
type Entry struct {
	SubmissionID int64 `json:"submission_id"`
	Percentage   int   `json:"percentage"`
	Rank         int   `json:"rank"`
}

// Key returns the Redis key holding the ranking of an exam.
func Key(examID int64) string {
	return fmt.Sprintf("exam:%d:ranking", examID)
}

// member encodes a submission id as a fixed-width sorted set member so that
// Redis's lexicographic tie order matches numeric order.
func member(submissionID int64) string {
	return fmt.Sprintf("%020d", submissionID)
}

type redisRanking struct {
	client *redis.Client
}

// NewRedis returns a Ranking backed by one Redis sorted set per exam.
func NewRedis(client *redis.Client) Ranking {
	return &redisRanking{client: client}
}

func (r *redisRanking) Record(ctx context.Context, examID, submissionID int64, percentage int) error {
	return r.client.ZAdd(ctx, Key(examID), redis.Z{
		Score:  float64(percentage),
		Member: member(submissionID),
	}).Err()
}

func (r *redisRanking) Top(ctx context.Context, examID int64, limit int) ([]Entry, error) {
	if limit <= 0 {
		return []Entry{}, nil
	}
	results, err := r.client.ZRevRangeWithScores(ctx, Key(examID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read ranking of exam %d: %w", examID, err)
	}

	entries := make([]Entry, 0, len(results))
	for i, z := range results {
		m, _ := z.Member.(string)
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse ranking member %q: %w", m, err)
		}
		entries = append(entries, Entry{
			SubmissionID: id,
			Percentage:   int(z.Score),
			Rank:         i + 1,
		})
	}
	return entries, nil
}

func (r *redisRanking) Rank(ctx context.Context, examID, submissionID int64) (int64, error) {
	rank, err := r.client.ZRevRank(ctx, Key(examID), member(submissionID)).Result()
	if err == redis.Nil {
		return -1, nil
	}
	return rank + 1, err
}

func (r *redisRanking) Clear(ctx context.Context, examID int64) error {
	return r.client.Del(ctx, Key(examID)).Err()
}

// Memory is an in-process Ranking used when no Redis server is configured.
type Memory struct {
	mu    sync.Mutex
	exams map[int64]map[int64]int
}

// NewMemory returns an empty in-process ranking.
func NewMemory() *Memory {
	return &Memory{exams: make(map[int64]map[int64]int)}
}

func (m *Memory) Record(_ context.Context, examID, submissionID int64, percentage int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	scores, ok := m.exams[examID]
	if !ok {
		scores = make(map[int64]int)
		m.exams[examID] = scores
	}
	scores[submissionID] = percentage
	return nil
}

// sorted orders entries like ZREVRANGE over fixed-width members: score
// descending, then submission id descending.
func (m *Memory) sorted(examID int64) []Entry {
	scores := m.exams[examID]
	entries := make([]Entry, 0, len(scores))
	for id, pct := range scores {
		entries = append(entries, Entry{SubmissionID: id, Percentage: pct})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Percentage != entries[j].Percentage {
			return entries[i].Percentage > entries[j].Percentage
		}
		return entries[i].SubmissionID > entries[j].SubmissionID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

func (m *Memory) Top(_ context.Context, examID int64, limit int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := m.sorted(examID)
	if limit < 0 {
		limit = 0
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (m *Memory) Rank(_ context.Context, examID, submissionID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.sorted(examID) {
		if e.SubmissionID == submissionID {
			return int64(e.Rank), nil
		}
	}
	return -1, nil
}

func (m *Memory) Clear(_ context.Context, examID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.exams, examID)
	return nil
}
