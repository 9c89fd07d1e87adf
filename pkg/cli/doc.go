/*
Package cli provides command-line interface utilities for the relief
command.

Output Formatting:

Command results can be printed as text, JSON or YAML:

	format, err := cli.ParseFormat(flags.format)
	if err != nil {
		return err
	}
	if err := cli.NewFormatter(format).FormatTo(os.Stdout, result); err != nil {
		return err
	}

Progress Reporting:

Ranking many slots reports progress on stderr:

	progress := cli.NewProgressReporter(os.Stderr, "slots")
	progress.Start(int64(len(slots)))
	for i, slot := range slots {
		// rank slot
		progress.Update(int64(i + 1))
	}
	progress.Finish()

Errors and Signals:

ExitCode maps ConfigError to exit status 2 and every other error to 1.
SetupSignalHandler derives a context canceled on SIGINT or SIGTERM.
*/
package cli
