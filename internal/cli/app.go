package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/recipesync/internal/config"
	"github.com/roach88/recipesync/internal/ir"
	"github.com/roach88/recipesync/internal/logging"
	"github.com/roach88/recipesync/internal/metrics"
	"github.com/roach88/recipesync/internal/remote"
	"github.com/roach88/recipesync/internal/signing"
	"github.com/roach88/recipesync/internal/store"
)

// app is the per-invocation wiring shared by commands.
type app struct {
	opts      *RootOptions
	cfg       *config.Config
	store     *store.Store
	logger    *slog.Logger
	formatter *OutputFormatter
}

// openApp loads config, configures logging and opens the store.
// Failures are command errors (exit code 2).
func openApp(cmd *cobra.Command, opts *RootOptions) (*app, error) {
	formatter := newFormatter(cmd, opts)

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, commandError(formatter, ErrCodeConfig, "failed to load config", err)
	}

	logger, err := logging.Setup(cmd.ErrOrStderr(), logging.Options{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Verbose: opts.Verbose,
	})
	if err != nil {
		return nil, commandError(formatter, ErrCodeConfig, "failed to configure logging", err)
	}

	logger.Debug("opening database", "path", cfg.Database)
	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, commandError(formatter, ErrCodeDatabase, "failed to open database", err)
	}

	return &app{opts: opts, cfg: cfg, store: st, logger: logger, formatter: formatter}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing database", "error", err)
	}
}

func (a *app) clock() signing.Clock {
	if a.opts.Clock != nil {
		return a.opts.Clock
	}
	return signing.SystemClock{}
}

func (a *app) emitter() metrics.Emitter {
	if a.opts.Emitter != nil {
		return a.opts.Emitter
	}
	return metrics.LogEmitter{Logger: a.logger, Prefix: a.cfg.Metrics.Prefix}
}

// signer builds the configured Signer. The Verifier is nil unless the
// backend can check signatures locally.
func (a *app) signer() (signing.Signer, signing.Verifier, error) {
	if a.opts.Signer != nil {
		return a.opts.Signer, a.opts.Verifier, nil
	}
	sc := a.cfg.Signing
	switch sc.Backend {
	case "autograph":
		return signing.NewAutographClient(signing.AutographConfig{
			URL:           sc.Autograph.URL,
			Authorization: sc.Autograph.Authorization,
			KeyID:         sc.Autograph.KeyID,
			Timeout:       sc.Autograph.Timeout.Duration,
		}), nil, nil
	case "local":
		s, err := signing.LoadLocalSigner(sc.LocalKeyPath, signing.WithSigningClock(a.clock()))
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		return nil, nil, errors.New("no signer configured (set signing.backend)")
	}
}

// verifier returns a Verifier when one is available without network.
func (a *app) verifier() signing.Verifier {
	if a.opts.Signer != nil {
		return a.opts.Verifier
	}
	if a.cfg.Signing.Backend != "local" {
		return nil
	}
	s, err := signing.LoadLocalSigner(a.cfg.Signing.LocalKeyPath, signing.WithSigningClock(a.clock()))
	if err != nil {
		a.logger.Warn("cannot load local key for verification", "error", err)
		return nil
	}
	return s
}

func (a *app) collection() (remote.Collection, error) {
	if a.opts.Collection != nil {
		return a.opts.Collection, nil
	}
	rs := a.cfg.RemoteSettings
	if !rs.Enabled() {
		return nil, errors.New("remote settings not configured (set remote_settings.url)")
	}
	return remote.NewKintoClient(remote.KintoConfig{
		URL:             rs.URL,
		Authorization:   rs.Authorization,
		WorkspaceBucket: rs.WorkspaceBucket,
		PublishBucket:   rs.PublishBucket,
		Collection:      rs.Collection,
		Timeout:         rs.Timeout.Duration,
	}), nil
}

// kindsFor expands the --kind flag.
func kindsFor(kind string) ([]ir.Kind, error) {
	switch kind {
	case "all", "":
		return []ir.Kind{ir.KindRecipe, ir.KindAction}, nil
	case "recipe":
		return []ir.Kind{ir.KindRecipe}, nil
	case "action":
		return []ir.Kind{ir.KindAction}, nil
	default:
		return nil, fmt.Errorf("invalid kind %q: must be recipe, action or all", kind)
	}
}

// updateSignatures runs the signing coordinator for each kind in order and
// emits gauges for every kind that ran, including a partial one.
func (a *app) updateSignatures(ctx context.Context, logger *slog.Logger, kinds []ir.Kind, force bool) ([]signing.Report, error) {
	signer, _, err := a.signer()
	if err != nil {
		return nil, err
	}
	coord := signing.NewCoordinator(signer, a.store, signing.WithClock(a.clock()), signing.WithLogger(logger))
	opts := signing.Options{
		MaxAge:    a.cfg.Signing.MaxSignatureAge.Duration,
		Force:     force,
		BatchSize: a.cfg.Signing.BatchSize,
	}

	var reports []signing.Report
	for _, kind := range kinds {
		entities, err := a.loadSignables(ctx, kind)
		if err != nil {
			return reports, err
		}
		report, err := coord.Reconcile(ctx, kind, entities, opts)
		if emitErr := metrics.EmitSigning(a.emitter(), report); emitErr != nil {
			logger.Warn("emitting signing gauges", "error", emitErr)
		}
		reports = append(reports, report)
		if err != nil {
			return reports, err
		}
	}
	return reports, nil
}

func (a *app) loadSignables(ctx context.Context, kind ir.Kind) ([]ir.Signable, error) {
	switch kind {
	case ir.KindRecipe:
		recipes, err := a.store.ListRecipes(ctx)
		if err != nil {
			return nil, err
		}
		return ir.Signables(recipes), nil
	case ir.KindAction:
		actions, err := a.store.ListActions(ctx)
		if err != nil {
			return nil, err
		}
		return ir.Signables(actions), nil
	default:
		return nil, fmt.Errorf("unknown kind %q", kind)
	}
}

// syncRemote builds the desired set from the store and reconciles the
// remote collection with it.
func (a *app) syncRemote(ctx context.Context, logger *slog.Logger, dryRun bool) (remote.SyncReport, error) {
	coll, err := a.collection()
	if err != nil {
		return remote.SyncReport{}, err
	}
	recipes, err := a.store.ListRecipes(ctx)
	if err != nil {
		return remote.SyncReport{}, err
	}
	for _, r := range recipes {
		if r.Enabled && remote.CurrentSignature(r) == nil {
			logger.Warn("publishing enabled recipe without a current signature", "id", r.ID, "name", r.Name)
		}
	}
	desired, err := remote.DesiredSet(recipes)
	if err != nil {
		return remote.SyncReport{}, err
	}

	reconciler := remote.NewReconciler(coll,
		remote.WithParallelism(a.cfg.RemoteSettings.Parallelism),
		remote.WithLogger(logger),
	)
	report, err := reconciler.Sync(ctx, desired, remote.SyncOptions{DryRun: dryRun})
	metrics.EmitSync(a.emitter(), report)
	return report, err
}
