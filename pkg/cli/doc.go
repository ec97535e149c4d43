/*
Package cli provides command-line helpers shared by the lucon command.

Output Formatting:

Commands print their results as text or JSON depending on --format:

	format, err := cli.ParseFormat(flagValue)
	if err != nil {
		return err
	}
	formatter := cli.NewFormatter(format)
	return formatter.FormatTo(cmd.OutOrStdout(), result)

Results that implement Texter control their text rendering.

Errors and Exit Codes:

ConfigError marks invalid configuration or flags (exit code 2). ExitError
carries an explicit exit code, for example a denied decision. Everything
else exits with 1.

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()
*/
package cli
