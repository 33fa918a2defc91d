package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	customErr "github.com/mini-maxit/judge-engine/pkg/errors"
	"github.com/mini-maxit/judge-engine/pkg/submission"
)

var timeNow = time.Now

// MemoryStore keeps everything in process. Values are copied in and out so
// callers never share state with the store.
type MemoryStore struct {
	mu          sync.RWMutex
	submissions map[string]submission.Submission
	problems    map[string]submission.Problem
	saves       map[string]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		submissions: make(map[string]submission.Submission),
		problems:    make(map[string]submission.Problem),
		saves:       make(map[string]int),
	}
}

// PutProblem stores a problem together with its test cases.
func (s *MemoryStore) PutProblem(problem submission.Problem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	problem.TestCases = append([]submission.TestCase(nil), problem.TestCases...)
	s.problems[problem.ID] = problem
}

// PutSubmission stores a submission without counting it as a save.
func (s *MemoryStore) PutSubmission(sub submission.Submission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub.SubmittedAt.IsZero() {
		sub.SubmittedAt = timeNow()
	}
	s.submissions[sub.ID] = sub
}

// Saves returns how many times SaveSubmission was called for id.
func (s *MemoryStore) Saves(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves[id]
}

func (s *MemoryStore) LoadSubmission(_ context.Context, id string) (*submission.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.submissions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", customErr.ErrSubmissionNotFound, id)
	}
	return &sub, nil
}

func (s *MemoryStore) LoadProblem(_ context.Context, id string) (*submission.Problem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	problem, ok := s.problems[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", customErr.ErrProblemNotFound, id)
	}
	problem.TestCases = nil
	return &problem, nil
}

func (s *MemoryStore) LoadTestCases(_ context.Context, problemID string) ([]submission.TestCase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	problem, ok := s.problems[problemID]
	if !ok {
		return nil, nil
	}
	return append([]submission.TestCase(nil), problem.TestCases...), nil
}

func (s *MemoryStore) SaveSubmission(_ context.Context, sub *submission.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submissions[sub.ID] = *sub
	s.saves[sub.ID]++
	return nil
}
