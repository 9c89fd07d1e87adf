package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	playground "github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "policy.path").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "configuration validation failed with %d errors:\n", len(e.Errors))
	for _, err := range e.Errors {
		fmt.Fprintf(&sb, "  - %s\n", err.Error())
	}
	return sb.String()
}

var structValidator = newStructValidator()

func newStructValidator() *playground.Validate {
	v := playground.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// cronParser accepts the standard five-field cron format.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Validate validates the entire configuration and returns a ValidationError
// if any rule fails. All errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateTags(cfg)...)
	errs = append(errs, validateEngine(&cfg.Engine)...)
	errs = append(errs, validatePolicy(&cfg.Policy)...)
	errs = append(errs, validateEvidence(&cfg.Evidence)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

// validateTags runs the struct tag rules.
func validateTags(cfg *Config) []FieldError {
	err := structValidator.Struct(cfg)
	if err == nil {
		return nil
	}

	var fieldErrs playground.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []FieldError{{Field: "config", Message: err.Error()}}
	}

	errs := make([]FieldError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		errs = append(errs, FieldError{
			Field:   fieldPath(fe.Namespace()),
			Message: tagMessage(fe),
		})
	}
	return errs
}

// fieldPath drops the root type name from a validator namespace.
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func tagMessage(fe playground.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "field is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %q", fe.Param(), fmt.Sprint(fe.Value()))
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gtefield":
		return fmt.Sprintf("must be at least %s", yamlFieldName(fe.Param()))
	case "ltefield":
		return fmt.Sprintf("must not exceed %s", yamlFieldName(fe.Param()))
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}

// yamlFieldName converts a Go field name such as MaxOpenConns to max_open_conns.
func yamlFieldName(field string) string {
	var sb strings.Builder
	for i, r := range field {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				sb.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func validateEngine(cfg *EngineConfig) []FieldError {
	var errs []FieldError

	for subject, domains := range cfg.SubjectDomains {
		if strings.TrimSpace(subject) == "" {
			errs = append(errs, FieldError{
				Field:   "engine.subject_domains",
				Message: "subject name must not be empty",
			})
			continue
		}
		if len(domains) == 0 {
			errs = append(errs, FieldError{
				Field:   "engine.subject_domains." + subject,
				Message: "at least one domain is required",
			})
		}
	}

	return errs
}

func validatePolicy(cfg *PolicyConfig) []FieldError {
	var errs []FieldError

	if cfg.Mode != "git" {
		return errs
	}

	if cfg.Git.Repository == "" {
		errs = append(errs, FieldError{
			Field:   "policy.git.repository",
			Message: "repository is required when mode is \"git\"",
		})
	}
	if cfg.Git.Branch == "" {
		errs = append(errs, FieldError{
			Field:   "policy.git.branch",
			Message: "branch is required when mode is \"git\"",
		})
	}
	if strings.Contains(cfg.Git.Path, "..") {
		errs = append(errs, FieldError{
			Field:   "policy.git.path",
			Message: "path must stay inside the repository",
		})
	}
	if cfg.Git.Poll.Enabled && cfg.Git.Poll.Interval <= 0 {
		errs = append(errs, FieldError{
			Field:   "policy.git.poll.interval",
			Message: "interval must be positive when polling is enabled",
		})
	}

	return errs
}

func validateEvidence(cfg *EvidenceConfig) []FieldError {
	var errs []FieldError

	if !cfg.Enabled {
		return errs
	}

	if cfg.Backend == "sqlite" && cfg.SQLite.Path == "" {
		errs = append(errs, FieldError{
			Field:   "evidence.sqlite.path",
			Message: "path is required for the sqlite backend",
		})
	}
	if cfg.Retention.PruneSchedule != "" {
		if _, err := cronParser.Parse(cfg.Retention.PruneSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "evidence.retention.prune_schedule",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	if cfg.Metrics.Enabled {
		prev := 0.0
		for i, b := range cfg.Metrics.DurationBuckets {
			if b <= 0 || (i > 0 && b <= prev) {
				errs = append(errs, FieldError{
					Field:   "telemetry.metrics.duration_buckets",
					Message: "buckets must be positive and strictly increasing",
				})
				break
			}
			prev = b
		}
	}

	return errs
}
