package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/lex00/perftest-infra-go/internal/config"
	"github.com/lex00/perftest-infra-go/internal/guard"
)

// newWatchCmd creates the "watch" subcommand for auto-rebuilding on config changes.
func newWatchCmd(root *rootOptions) *cobra.Command {
	var (
		debounce     time.Duration
		outputFormat string
		outputFile   string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Auto-rebuild on config file changes",
		Long: `Watch monitors the config file and .env for changes and rebuilds.

The watch command:
- Monitors the directory holding the config file
- Rebuilds and runs the guard rules on each change
- Debounces rapid changes to avoid excessive rebuilds

Examples:
    perftest watch
    perftest watch -o template.json
    perftest watch --debounce 1s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd.OutOrStdout(), root.configFile, watchOptions{
				debounce:     debounce,
				outputFormat: outputFormat,
				outputFile:   outputFile,
			})
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "Debounce duration for rapid changes")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "json", "Output format for build: json or yaml")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file for build (default: summary only)")

	return cmd
}

type watchOptions struct {
	debounce     time.Duration
	outputFormat string
	outputFile   string
}

// runWatch rebuilds whenever the config file or .env beside it changes. It
// returns when ctx is done.
func runWatch(ctx context.Context, w io.Writer, configFile string, opts watchOptions) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		_ = watcher.Close()
	}()

	absConfig, err := filepath.Abs(configFile)
	if err != nil {
		return err
	}
	// Editors replace files on save, so watch the directory rather than the file.
	dir := filepath.Dir(absConfig)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	fmt.Fprintf(w, "Watching: %s\n", absConfig)

	fmt.Fprintln(w, "Running initial build...")
	runWatchBuild(ctx, w, configFile, opts)

	var debounceTimer *time.Timer
	rebuildChan := make(chan struct{}, 1)

	fmt.Fprintln(w, "\nWatching for changes... (Ctrl+C to stop)")

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isWatched(event, absConfig) {
				continue
			}

			// Debounce: reset timer on each change
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(opts.debounce, func() {
				select {
				case rebuildChan <- struct{}{}:
				default:
				}
			})

		case <-rebuildChan:
			fmt.Fprintf(w, "\n[%s] Change detected, rebuilding...\n", time.Now().Format("15:04:05"))
			runWatchBuild(ctx, w, configFile, opts)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "Watch error: %v\n", err)

		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			fmt.Fprintln(w, "\nStopping watch...")
			return nil
		}
	}
}

// isWatched reports whether event touches the config file or the .env file
// next to it.
func isWatched(event fsnotify.Event, absConfig string) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	name, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	return name == absConfig || name == config.DotenvPath(absConfig)
}

// runWatchBuild builds, checks the guard rules and writes the template.
func runWatchBuild(ctx context.Context, w io.Writer, configFile string, opts watchOptions) {
	result := runBuild(ctx, configFile)
	if !result.Success {
		for _, e := range result.Errors {
			fmt.Fprintf(os.Stderr, "Build error: %s\n", e)
		}
		return
	}
	if !result.Enabled {
		fmt.Fprintln(w, "Performance testing is disabled; no resources declared")
		return
	}

	check := guard.Check(result.Template, guard.Options{File: opts.outputFile})
	for _, issue := range check.Issues {
		fmt.Fprintf(w, "%s: %s [%s]\n", issue.Severity, issue.Message, issue.Rule)
	}
	if !check.Success {
		fmt.Fprintln(w, "Guard rules failed, skipping output")
		return
	}

	data, err := encodeTemplate(result.Template, opts.outputFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Output error: %v\n", err)
		return
	}

	if opts.outputFile == "" {
		fmt.Fprintln(w, "Build successful")
		fmt.Fprintf(w, "Generated %d resources\n", len(result.Resources))
		return
	}
	if err := os.WriteFile(opts.outputFile, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write output: %v\n", err)
		return
	}
	fmt.Fprintf(w, "Build successful, wrote %s\n", opts.outputFile)
}
