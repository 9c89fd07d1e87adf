// Package git serves policies from a git repository.
//
// Repository clones the configured remote (HTTPS with a token, SSH with a
// key, or unauthenticated), fast-forwards it on Pull and can Reset the
// branch to an earlier commit. Source adapts a Repository to the
// source.PolicySource interface: it loads the policy directory of the
// clone and, when polling is enabled, pulls on an interval and reports
// changed policy files.
//
// The manager rolls back with Source.Rollback when a pulled revision fails
// validation, so the clone never stays on a commit whose policies were
// rejected.
//
//	repo, err := git.NewRepository(cfg.Policy.Git, logger)
//	if err != nil {
//	    return err
//	}
//	if err := repo.Clone(ctx); err != nil {
//	    return err
//	}
//	src := git.NewSource(repo, cfg.Policy.Git.Poll.Interval, logger)
package git
