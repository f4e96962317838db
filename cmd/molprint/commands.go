package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/chazu/molprint/pkg/session"
	"github.com/chazu/molprint/pkg/watcher"
	"github.com/spf13/cobra"
)

var interactionsCmd = &cobra.Command{
	Use:   "interactions <scene.json>",
	Short: "Compute which spheres touch which cylinders",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(args[0])
		if err != nil {
			return err
		}
		if clean, _ := cmd.Flags().GetBool("clean"); clean {
			rep := s.Clean()
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d nested spheres, %d duplicate cylinders\n",
				len(rep.Spheres), len(rep.Cylinders))
		}
		idx, err := s.BuildInteractions()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d primitives, %d interactions\n", s.Name, s.Scene.Len(), idx.Len())
		return saveState(s)
	},
}

var groupsCmd = &cobra.Command{
	Use:   "groups <scene.json> [seed...]",
	Short: "Group the model from seed primitives and list the groups",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(args[0])
		if err != nil {
			return err
		}
		if err := ensureInteractions(s); err != nil {
			return err
		}
		if err := s.Select(args[1:]...); err != nil {
			return err
		}
		if _, err := s.Regroup(); err != nil {
			return err
		}
		printGroups(cmd.OutOrStdout(), s)
		return saveState(s)
	},
}

var classifyCmd = &cobra.Command{
	Use:       "classify <scene.json> <hbonds|phosphates|glyco|alpha>...",
	Short:     "Select primitives by chemistry and group from them",
	Args:      cobra.MinimumNArgs(2),
	ValidArgs: []string{"hbonds", "phosphates", "glyco", "alpha"},
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(args[0])
		if err != nil {
			return err
		}
		if err := ensureInteractions(s); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, kind := range args[1:] {
			found, err := s.Classify(kind)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s: %d selected\n", kind, found.Len())
		}
		if pinType, _ := cmd.Flags().GetString("pins"); pinType != "" {
			if err := definePins(s, pinType); err != nil {
				return err
			}
		}
		if s.Groups == nil {
			if _, err := s.Regroup(); err != nil {
				return err
			}
		}
		printGroups(out, s)
		return saveState(s)
	},
}

var runCmd = &cobra.Command{
	Use:   "run <scene.json> <script>",
	Short: "Run a session script against a model",
	Long: `Runs a session script. Scripts are Lisp; each call is one session step:

  (interactions)
  (classify :hbonds)
  (pins :split)
  (assemble)
  (floor :auto)`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(args[0])
		if err != nil {
			return err
		}
		source, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}
		result := NewApp(s).Evaluate(string(source))
		out := cmd.OutOrStdout()
		for _, w := range result.Warnings {
			fmt.Fprintf(out, "warning: %s\n", w.Message)
		}
		for _, m := range result.Meshes {
			fmt.Fprintf(out, "%s %s %d triangles\n", swatch(m.Color), m.PartName, len(m.Indices)/3)
		}
		if path, _ := cmd.Flags().GetString("meshes"); path != "" {
			if err := writeJSON(path, result); err != nil {
				return err
			}
		}
		if len(result.Errors) > 0 {
			for _, e := range result.Errors {
				if e.Line > 0 {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s:%d:%d: %s\n", args[1], e.Line, e.Col, e.Message)
				} else {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", args[1], e.Message)
				}
			}
			return fmt.Errorf("%s: %d errors", args[1], len(result.Errors))
		}
		return saveState(s)
	},
}

var floorCmd = &cobra.Command{
	Use:   "floor <scene.json> [body...]",
	Short: "Assemble the model and lay the pieces on the build plate",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(args[0])
		if err != nil {
			return err
		}
		if err := ensureInteractions(s); err != nil {
			return err
		}
		if cpk, _ := cmd.Flags().GetBool("cpk"); cpk {
			_, err = s.CPK()
		} else {
			_, err = s.Assemble()
		}
		if err != nil {
			return err
		}
		mode, _ := cmd.Flags().GetString("mode")
		if err := s.Floor(mode, args[1:]...); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if n := len(s.Loose); n > 0 {
			fmt.Fprintf(out, "warning: %d primitives not reached by any group\n", n)
		}
		for _, b := range s.Bodies {
			r := b.Rotation
			fmt.Fprintf(out, "%s %s origin (%.3f %.3f %.3f) rotation (%.4f %.4f %.4f %.4f)\n",
				swatch(b.Color.Hex()), b.Name, b.Origin.X, b.Origin.Y, b.Origin.Z,
				r.Real, r.Imag, r.Jmag, r.Kmag)
		}
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch <scene.json> <selection.txt>",
	Short: "Regroup whenever a selection file changes",
	Long: `Watches a text file of primitive names, one per line, and regroups the
model from them every time the file is saved. Stops on interrupt.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(args[0])
		if err != nil {
			return err
		}
		s.Config.Grouping.AutoGroup = true
		if err := ensureInteractions(s); err != nil {
			return err
		}

		fw, err := watcher.NewFileWatcher(watcher.DefaultDebounce, s.Logger())
		if err != nil {
			return err
		}
		defer fw.Close()
		fw.Start()

		out := cmd.OutOrStdout()
		sel := &printingSelector{s: s, out: out}
		if err := watcher.WatchSelection(fw, args[1], sel, nil); err != nil {
			return err
		}
		fmt.Fprintf(out, "watching %s\n", args[1])

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sig)
		<-sig
		// no regroup may still be running when the state is written
		if err := fw.Close(); err != nil {
			return err
		}
		return saveState(s)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "molprint %s\n", version)
	},
}

func init() {
	interactionsCmd.Flags().Bool("clean", false, "remove nested spheres and duplicate cylinders first")
	classifyCmd.Flags().String("pins", "", "define pins of this type (plain, split, pip) on the selection")
	runCmd.Flags().String("meshes", "", "write the placed meshes as JSON to this file")
	floorCmd.Flags().String("mode", "auto", "auto floors each piece alone, multi floors them as one")
	floorCmd.Flags().Bool("cpk", false, "split a space-filling model by atom radius instead of grouping")

	rootCmd.AddCommand(interactionsCmd, groupsCmd, classifyCmd, runCmd, floorCmd, watchCmd, versionCmd)
}

// printingSelector prints the groups after every selection change.
type printingSelector struct {
	s   *session.Session
	out io.Writer
}

func (p *printingSelector) SetSelection(names ...string) error {
	if err := p.s.SetSelection(names...); err != nil {
		return err
	}
	printGroups(p.out, p.s)
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
