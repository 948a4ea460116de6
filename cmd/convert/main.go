package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"server/internal/client"
	"server/internal/domain"
	"server/internal/history"
	"server/internal/infra"
	"server/internal/session"
	"server/internal/storage"
	"server/internal/viewer"
)

var (
	flagServer    string
	flagUser      string
	flagOutput    string
	flagNoSave    bool
	flagSteps     int
	flagGuidance  float64
	flagSeed      int
	flagOctree    int
	flagChunks    int
	flagRembg     bool
	flagRandomize bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert [image]",
		Short: "Convert a jewelry photo into a 3D model",
		Long: `convert submits a jewelry photo to the generation backend, waits for
the finished model, and saves it locally.

Examples:
  convert ring.png
  convert --steps 30 --octree 256 pendant.jpg
  convert --server http://localhost:3001 --no-save earring.png`,
		Args: cobra.ExactArgs(1),
		RunE: runConvert,
	}

	cmd.Flags().StringVar(&flagServer, "server", "http://localhost:3001", "backend base URL")
	cmd.Flags().StringVar(&flagUser, "user", "", "user id recorded with the conversion (empty = anonymous)")
	cmd.Flags().StringVarP(&flagOutput, "output", "o", "downloads", "directory for the saved model")
	cmd.Flags().BoolVar(&flagNoSave, "no-save", false, "skip downloading the finished model")
	cmd.Flags().IntVar(&flagSteps, "steps", 0, "inference steps (1-50)")
	cmd.Flags().Float64Var(&flagGuidance, "guidance", 0, "guidance scale (1.0-10.0)")
	cmd.Flags().IntVar(&flagSeed, "seed", 0, "generation seed")
	cmd.Flags().IntVar(&flagOctree, "octree", 0, "octree resolution (16-512)")
	cmd.Flags().IntVar(&flagChunks, "chunks", 0, "number of chunks (1000-10000)")
	cmd.Flags().BoolVar(&flagRembg, "rembg", true, "remove the photo background before generation")
	cmd.Flags().BoolVar(&flagRandomize, "randomize", true, "randomize the seed per run")

	return cmd
}

func runConvert(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := infra.NewLogger(os.Getenv("APP_ENV"))

	imagePath := args[0]
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}
	mime := http.DetectContentType(data)

	sess, closeSink, err := buildSession(ctx, logger)
	if err != nil {
		return err
	}
	defer closeSink()

	if err := sess.SelectImage(filepath.Base(imagePath), mime, data); err != nil {
		return fmt.Errorf("%s is not a usable image: %w", imagePath, err)
	}
	if err := applyOptionFlags(cmd, sess); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Converting %s...\n", filepath.Base(imagePath))
	result, err := sess.Submit(ctx)
	if err != nil {
		return err
	}
	if !result.OK() {
		if result.Failure.RetryAfter > 0 {
			return fmt.Errorf("%s (retry in %s)", result.Failure.Message, domain.FormatRetryDelay(result.Failure.RetryAfter))
		}
		return fmt.Errorf("%s", result.Failure.Message)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Model ready: %s\n", result.AssetURL)

	if flagNoSave {
		return nil
	}
	return saveAndInspect(ctx, cmd, logger, result.AssetURL)
}

// buildSession wires the proxy client and, when DATABASE_URL is set, the
// best-effort history sink.
func buildSession(ctx context.Context, logger infra.Logger) (*session.Session, func(), error) {
	submitter := client.New(client.Options{BaseURL: flagServer, Logger: &logger})

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pool, err := infra.NewDBPool(ctx, &infra.Config{DatabaseURL: dbURL})
		if err != nil {
			return nil, nil, fmt.Errorf("connect history database: %w", err)
		}
		sink := history.NewPGSink(pool, logger)
		closer := func() {
			sink.Close()
			pool.Close()
		}
		return session.New(submitter, sink, flagUser), closer, nil
	}

	return session.New(submitter, nil, flagUser), func() {}, nil
}

// applyOptionFlags copies only the flags the user actually set, so untouched
// parameters keep their defaults.
func applyOptionFlags(cmd *cobra.Command, sess *session.Session) error {
	set := map[string]any{}
	if cmd.Flags().Changed("steps") {
		set[domain.KeySteps] = flagSteps
	}
	if cmd.Flags().Changed("guidance") {
		set[domain.KeyGuidanceScale] = flagGuidance
	}
	if cmd.Flags().Changed("seed") {
		set[domain.KeySeed] = flagSeed
	}
	if cmd.Flags().Changed("octree") {
		set[domain.KeyOctreeResolution] = flagOctree
	}
	if cmd.Flags().Changed("chunks") {
		set[domain.KeyNumChunks] = flagChunks
	}
	if cmd.Flags().Changed("rembg") {
		set[domain.KeyRemoveBackground] = flagRembg
	}
	if cmd.Flags().Changed("randomize") {
		set[domain.KeyRandomizeSeed] = flagRandomize
	}
	for key, value := range set {
		if err := sess.SetOption(key, value); err != nil {
			return fmt.Errorf("option %s: %w", key, err)
		}
	}
	return nil
}

// saveAndInspect downloads the finished model, then loads its metadata and
// reports the normalized presentation.
func saveAndInspect(ctx context.Context, cmd *cobra.Command, logger infra.Logger, assetURL string) error {
	store, err := storage.NewFileStore(flagOutput)
	if err != nil {
		return err
	}
	downloader, err := viewer.NewDownloader(viewer.DownloaderOptions{Store: store, Logger: &logger})
	if err != nil {
		return err
	}

	key, err := downloader.Save(ctx, assetURL)
	if err != nil {
		return err
	}
	fullPath, err := store.FullPath(key)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved: %s\n", fullPath)

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return fmt.Errorf("read saved model: %w", err)
	}
	scene, err := viewer.LoadScene(data)
	if err != nil {
		// The model saved fine; inspection is extra.
		logger.Warn().Err(err).Msg("could not read model metadata")
		return nil
	}

	view := viewer.Present(scene)
	size := view.Transform().Apply(scene.Bounds).Size()
	fmt.Fprintf(cmd.OutOrStdout(), "Vertices: %d  Faces: %d\n", scene.Stats.Vertices, scene.Stats.Faces)
	fmt.Fprintf(cmd.OutOrStdout(), "Display size: %.2f x %.2f x %.2f\n", size.X, size.Y, size.Z)
	return nil
}
