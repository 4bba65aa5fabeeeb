package view

import (
	"sync"

	"github.com/jonathan/job-dashboard/internal/backend"
)

// MaxCoverLetters bounds the letters kept per job in a session.
const MaxCoverLetters = 20

// CoverLetters is the per-session, append-only list of generated letters,
// keyed by job. Letters are never refetched from the backend.
type CoverLetters struct {
	mu      sync.Mutex
	letters map[string][]backend.CoverLetter
}

// NewCoverLetters returns an empty panel store.
func NewCoverLetters() *CoverLetters {
	return &CoverLetters{letters: make(map[string][]backend.CoverLetter)}
}

// Append records a generated letter for a job. The oldest letter is dropped
// once MaxCoverLetters is reached.
func (c *CoverLetters) Append(jobID string, letter backend.CoverLetter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	list := append(c.letters[jobID], letter)
	if len(list) > MaxCoverLetters {
		list = list[len(list)-MaxCoverLetters:]
	}
	c.letters[jobID] = list
}

// For returns the letters generated for a job, oldest first.
func (c *CoverLetters) For(jobID string) []backend.CoverLetter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]backend.CoverLetter(nil), c.letters[jobID]...)
}

// RoleScores keeps the latest role-fit scores per job for a session. Scores
// are produced by analysis and are not stored by the backend.
type RoleScores struct {
	mu     sync.Mutex
	scores map[string][]backend.RoleScore
}

// NewRoleScores returns an empty score store.
func NewRoleScores() *RoleScores {
	return &RoleScores{scores: make(map[string][]backend.RoleScore)}
}

// Set replaces the scores of a job.
func (r *RoleScores) Set(jobID string, scores []backend.RoleScore) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scores[jobID] = append([]backend.RoleScore(nil), scores...)
}

// For returns the scores of a job, or nil before any analysis.
func (r *RoleScores) For(jobID string) []backend.RoleScore {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]backend.RoleScore(nil), r.scores[jobID]...)
}
