// Command geodeck builds an Anki flashcard deck for a geographic region
// straight from Wikidata: one card set per administrative subdivision, or,
// with --cities, per largest city.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"geodeck/deck"
	"geodeck/mapimg"
	"geodeck/wikidata"
)

type cliOptions struct {
	language string
	cities   bool
	limit    int
	imageDir string
	dataDir  string
	asOf     string
	logLevel string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts cliOptions
	cmd := &cobra.Command{
		Use:   "geodeck <region-id>",
		Short: "Generate Anki geography decks from Wikidata",
		Long: `geodeck queries Wikidata for a region given by its Q-item identifier,
downloads or renders a map image per entry, and writes a ready-to-import
.apkg deck into the current directory.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.language, "language", wikidata.DefaultLanguage, "language of the generated deck")
	cmd.Flags().BoolVar(&opts.cities, "cities", false, "build a largest-cities deck instead of subdivisions")
	cmd.Flags().IntVar(&opts.limit, "limit", 30, "number of cities to include (city mode)")
	cmd.Flags().StringVar(&opts.imageDir, "image-dir", "", "folder to store images, new temporary folder by default")
	cmd.Flags().StringVar(&opts.dataDir, "data-dir", "", "folder for cached map data, user cache dir by default")
	cmd.Flags().StringVar(&opts.asOf, "as-of", "", "reference date (YYYY-MM-DD) for dissolved or future entities, today by default")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "info", "one of debug, info, warn, error")
	return cmd
}

func run(ctx context.Context, region string, opts cliOptions) error {
	_ = godotenv.Load()

	log, err := newLogger(opts.logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	defer log.Sync()

	checkLanguage(log, opts.language)

	asOf := time.Now()
	if opts.asOf != "" {
		asOf, err = time.Parse("2006-01-02", opts.asOf)
		if err != nil {
			log.Errorw("invalid --as-of date", "value", opts.asOf, "error", err)
			return err
		}
	}

	imageDir := opts.imageDir
	if imageDir == "" {
		imageDir, err = os.MkdirTemp("", "geodeck-")
		if err != nil {
			log.Errorw("creating image dir", "error", err)
			return err
		}
		defer os.RemoveAll(imageDir)
	} else if err := os.MkdirAll(imageDir, 0o755); err != nil {
		log.Errorw("creating image dir", "path", imageDir, "error", err)
		return err
	}
	log.Debugw("image folder", "path", imageDir)

	dataDir := opts.dataDir
	if dataDir == "" {
		cacheDir, err := os.UserCacheDir()
		if err != nil {
			cacheDir = "."
		}
		dataDir = cacheDir + "/geodeck"
	}

	var clientOpts []wikidata.Option
	clientOpts = append(clientOpts, wikidata.WithLogger(log))
	if v := os.Getenv("GEODECK_API"); v != "" {
		clientOpts = append(clientOpts, wikidata.WithAPIURL(v))
	}
	if v := os.Getenv("GEODECK_SPARQL"); v != "" {
		clientOpts = append(clientOpts, wikidata.WithSPARQLURL(v))
	}
	if v := os.Getenv("GEODECK_USER_AGENT"); v != "" {
		clientOpts = append(clientOpts, wikidata.WithUserAgent(v))
	}
	client := wikidata.NewClient(clientOpts...)

	fetcherOpts := []mapimg.FetcherOption{mapimg.WithLogger(log)}
	if v := os.Getenv("GEODECK_USER_AGENT"); v != "" {
		fetcherOpts = append(fetcherOpts, mapimg.WithUserAgent(v))
	}
	if v := os.Getenv("GEODECK_RESVG"); v != "" {
		fetcherOpts = append(fetcherOpts, mapimg.WithResvgPath(v))
	}
	fetcher := mapimg.NewFetcher(imageDir, fetcherOpts...)

	builder := deck.New(client, fetcher, log, deck.Options{
		Region:   region,
		Language: opts.language,
		Cities:   opts.cities,
		Limit:    opts.limit,
		ImageDir: imageDir,
		DataDir:  dataDir,
		AsOf:     asOf,
	})

	out, err := builder.Run(ctx)
	if err != nil {
		log.Errorw("deck build failed", "region", region, "error", err)
		return err
	}
	log.Infow("deck written", "path", out)
	return nil
}

// checkLanguage warns about a locale code outside the common list, with a
// nearest-match hint when one is close. Wikidata accepts far more codes than
// the list covers and missing translations fall back gracefully, so an
// unrecognised code is never a reason to stop.
func checkLanguage(log *zap.SugaredLogger, lang string) {
	if wikidata.KnownLanguage(lang) {
		return
	}
	if suggestion := wikidata.SuggestLanguage(lang); suggestion != "" {
		log.Warnw("language not in the common list, proceeding anyway",
			"language", lang, "closest_known", suggestion)
		return
	}
	log.Warnw("language not in the common list, proceeding anyway", "language", lang)
}

// newLogger builds a console logger at the requested level.
func newLogger(level string) (*zap.SugaredLogger, error) {
	var lvl zapcore.Level
	if err := lvl.Set(level); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}
