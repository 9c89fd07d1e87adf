// Package retention prunes old evidence records.
//
// A Pruner deletes records decided more than RetentionDays ago and, when
// MaxRecords is set, the oldest records above that count. With ArchivePath
// set, records are exported to a JSON file before they are deleted.
//
//	pruner := retention.NewPruner(store, retention.ConfigFrom(cfg.Evidence.Retention))
//	deleted, err := pruner.Prune(ctx)
//
// A Scheduler runs the pruner on a cron expression using
// github.com/robfig/cron/v3:
//
//	if err := pruner.Start(ctx); err != nil {
//	    return err
//	}
//	defer pruner.Stop()
package retention
