// Command molprint prepares ball-and-stick molecular models for 3D
// printing: it finds which atoms touch which bonds, splits the model into
// printable groups, cuts connector pins between them and lays each piece
// on the build plate.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/molprint/pkg/config"
	"github.com/chazu/molprint/pkg/logging"
	"github.com/chazu/molprint/pkg/metrics"
	"github.com/chazu/molprint/pkg/persist"
	"github.com/chazu/molprint/pkg/session"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	configPath  string
	logLevel    string
	metricsFile string
	stateDir    string

	registry = metrics.NewRegistry()
)

var rootCmd = &cobra.Command{
	Use:   "molprint",
	Short: "Split ball-and-stick molecular models into printable pieces",
	Long: `molprint reads a model as a JSON list of spheres (atoms) and cylinders
(bonds), groups it into pieces that print without supports, cuts connector
pins where pieces meet and floors every piece on its largest face.`,
	SilenceUsage: true,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if metricsFile == "" {
			return nil
		}
		return registry.WriteTextfile(metricsFile)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides the config")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile on exit")
	rootCmd.PersistentFlags().StringVarP(&stateDir, "state", "s", "", "directory holding interactions.json and pingroup.json")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openSession loads the config and the scene at path and, when --state is
// set, the saved interactions and pin groups.
func openSession(path string) (*session.Session, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	log := logging.NewJSONLogger(os.Stderr, logging.ParseLevel(cfg.Log.Level))

	doc, err := persist.LoadScene(path)
	if err != nil {
		return nil, fmt.Errorf("load scene: %w", err)
	}
	sc, err := doc.Scene()
	if err != nil {
		return nil, fmt.Errorf("load scene %s: %w", path, err)
	}
	name := doc.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	s, err := session.New(cfg, sc,
		session.WithLogger(log),
		session.WithMetrics(registry),
		session.WithName(name),
	)
	if err != nil {
		return nil, err
	}
	if stateDir != "" {
		if err := s.Load(stateDir); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// ensureInteractions builds the index unless one was loaded.
func ensureInteractions(s *session.Session) error {
	if s.Index != nil && !s.Index.Stale(s.Scene) {
		return nil
	}
	_, err := s.BuildInteractions()
	return err
}

// saveState writes the session documents when --state is set.
func saveState(s *session.Session) error {
	if stateDir == "" {
		return nil
	}
	return s.Save(stateDir)
}
