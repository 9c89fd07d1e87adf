package git

import (
	"time"
)

// CommitInfo describes the commit policies were loaded from.
type CommitInfo struct {
	SHA       string    `json:"sha"`
	Author    string    `json:"author"`
	Email     string    `json:"email"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Branch    string    `json:"branch"`
}

// Short returns the first eight characters of the SHA.
func (c *CommitInfo) Short() string {
	if len(c.SHA) < 8 {
		return c.SHA
	}
	return c.SHA[:8]
}

// PullResult contains the result of a pull.
type PullResult struct {
	FromSHA string
	ToSHA   string

	// ChangedFiles lists repository-relative paths touched between
	// FromSHA and ToSHA.
	ChangedFiles []string
}

// HadChanges reports whether the pull moved HEAD.
func (r *PullResult) HadChanges() bool {
	return r.FromSHA != r.ToSHA
}

// RepositoryMetrics tracks git operation counts and timings.
type RepositoryMetrics struct {
	CloneDuration   time.Duration
	PullDuration    time.Duration
	LastCommitSHA   string
	LastPullTime    time.Time
	FailedPulls     int64
	SuccessfulPulls int64
}
