// Command counter replays a YAML script of commands against a counter store
// and prints what its effect observes.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/AnatoleLucet/store"
)

type Counter struct {
	Count int `yaml:"count" store:"count"`
}

var (
	increment = store.NewCommand1("increment", func(s Counter) func(int) Counter {
		return func(n int) Counter { return Counter{Count: s.Count + n} }
	})
	decrement = store.NewCommand1("decrement", func(s Counter) func(int) Counter {
		return func(n int) Counter { return Counter{Count: s.Count - n} }
	})
	reset = store.NewCommand0("reset", func(Counter) Counter {
		return Counter{}
	})
)

// Script is the document read from --script.
type Script struct {
	Initial Counter `yaml:"initial"`
	Steps   []Step  `yaml:"steps"`
}

// Step either dispatches a command or disposes the effect.
type Step struct {
	Command string `yaml:"command"`
	Args    []any  `yaml:"args"`
	Dispose bool   `yaml:"dispose"`
}

var defaultScript = Script{
	Steps: []Step{
		{Command: "increment", Args: []any{5}},
		{Dispose: true},
		{Command: "increment", Args: []any{1}},
	},
}

func loadScript(path string) (Script, error) {
	if path == "" {
		return defaultScript, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Script{}, fmt.Errorf("read %s: %w", path, err)
	}

	var script Script
	if err := yaml.Unmarshal(data, &script); err != nil {
		return Script{}, fmt.Errorf("yaml unmarshal %s: %w", path, err)
	}

	return script, nil
}

func run(out io.Writer, script Script, logger *slog.Logger) error {
	counter, err := store.New(script.Initial,
		[]store.Command[Counter]{increment, decrement, reset},
		store.WithName("counter"),
		store.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	dispose, err := store.NewEffect(func() {
		count, _ := counter.Field("count")
		fmt.Fprintf(out, "count %v\n", count)
	})
	if err != nil {
		return err
	}
	defer dispose()

	for i, step := range script.Steps {
		if step.Dispose {
			logger.Debug("disposing effect", "step", i)
			dispose()
			continue
		}

		if err := counter.Dispatch(step.Command, step.Args...); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}

	fmt.Fprintf(out, "final %d\n", counter.Peek().Count)
	return nil
}

func newRootCmd() *cobra.Command {
	var (
		scriptPath string
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:          "counter",
		Short:        "Replay commands against a reactive counter",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			script, err := loadScript(scriptPath)
			if err != nil {
				return err
			}

			return run(cmd.OutOrStdout(), script, logger)
		},
	}

	cmd.Flags().StringVar(&scriptPath, "script", "", "YAML script to replay (default: increment 5, dispose, increment 1)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log every dispatch")

	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
