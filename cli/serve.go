package cli

import (
	"fmt"
	"net/http"

	"github.com/asaidimu/go-mimic/bolt"
	"github.com/asaidimu/go-mimic/core/persistence"
	"github.com/asaidimu/go-mimic/core/store"
	"github.com/asaidimu/go-mimic/server"
	"github.com/asaidimu/go-mimic/sqlite"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// ServeOptions holds the flags for the serve command.
type ServeOptions struct {
	Addr       string
	Data       []string
	Backend    string
	CORSOrigin string
	Verbose    bool
}

// ValidBackends defines the allowed snapshot backends.
var ValidBackends = []string{"json", "sqlite", "bolt"}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the data API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isValidBackend(opts.Backend) {
				return fmt.Errorf("invalid backend %q: must be one of %v", opts.Backend, ValidBackends)
			}
			return runServe(opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", ":3000", "listen address")
	cmd.Flags().StringSliceVar(&opts.Data, "data", []string{"db.json", "data/db.json"},
		"candidate database paths, tried in order (json backend); first path is used as-is for sqlite/bolt")
	cmd.Flags().StringVar(&opts.Backend, "backend", "json", "snapshot backend (json|sqlite|bolt)")
	cmd.Flags().StringVar(&opts.CORSOrigin, "cors-origin", "*", "Access-Control-Allow-Origin value")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose (development) logging")

	return cmd
}

func isValidBackend(backend string) bool {
	for _, b := range ValidBackends {
		if b == backend {
			return true
		}
	}
	return false
}

func runServe(opts *ServeOptions) error {
	logger, err := buildLogger(opts.Verbose)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()

	backend, cleanup, err := openBackend(opts, logger)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	st, err := store.Open(backend, logger)
	if err != nil {
		return err
	}

	p, err := persistence.New(st, nil, logger)
	if err != nil {
		return err
	}

	handler := server.New(st, p, server.Config{CORSOrigin: opts.CORSOrigin}, logger)

	logger.Info("mimic serving",
		zap.String("addr", opts.Addr),
		zap.String("backend", backend.Name()),
		zap.Strings("resources", st.Resources()))
	return http.ListenAndServe(opts.Addr, handler)
}

func buildLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func openBackend(opts *ServeOptions, logger *zap.Logger) (store.Backend, func() error, error) {
	if len(opts.Data) == 0 {
		return nil, nil, fmt.Errorf("at least one --data path is required")
	}
	switch opts.Backend {
	case "sqlite":
		b, err := sqlite.NewBackend(opts.Data[0], logger)
		if err != nil {
			return nil, nil, err
		}
		return b, b.Close, nil
	case "bolt":
		b, err := bolt.NewBackend(opts.Data[0], logger)
		if err != nil {
			return nil, nil, err
		}
		return b, b.Close, nil
	default:
		return store.NewFileBackend(logger, opts.Data...), nil, nil
	}
}
