// Package secrets resolves ${secret:name} references in credentials such as
// the policy repository token.
//
// A Resolver tries its providers in order. EnvProvider reads environment
// variables (RELIEF_SECRET_GIT_TOKEN for "git-token"); FileProvider reads
// one file per secret from a directory, in the layout used for mounted
// Kubernetes secrets. Secret files must not be readable by group or others.
//
//	r := secrets.NewResolver(secrets.NewEnvProvider("RELIEF_SECRET_"))
//	token, err := r.Resolve(ctx, cfg.Policy.Git.Auth.Token)
//
// Secret names are redacted in log output.
package secrets
