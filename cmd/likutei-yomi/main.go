// main package for the likutei-yomi daily halacha bot.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/book-expert/logger"
	"github.com/spf13/cobra"

	"github.com/naorbrown/likutei-yomi/internal/cache"
	"github.com/naorbrown/likutei-yomi/internal/config"
	"github.com/naorbrown/likutei-yomi/internal/message"
	"github.com/naorbrown/likutei-yomi/internal/sefaria"
	"github.com/naorbrown/likutei-yomi/internal/selector"
	"github.com/naorbrown/likutei-yomi/internal/speech"
	"github.com/naorbrown/likutei-yomi/internal/subscribers"
)

// version is set at build time via -ldflags.
var version = "dev"

const audioCacheSubdir = "audio"

var rootCmd = &cobra.Command{
	Use:   "likutei-yomi",
	Short: "Daily Likutei Halachot delivery bot",
	Long: "likutei-yomi selects two halachot from different volumes of " +
		"Likutei Halachot each day, deterministically per date, and delivers " +
		"them as Telegram messages and voice notes.",
	SilenceUsage: true,
}

// setupLogger creates a file-backed logger under logPath.
func setupLogger(logPath, name string) (*logger.Logger, error) {
	log, err := logger.New(logPath, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}

// setup runs the bootstrap sequence shared by every command: a temporary
// logger, the TOML configuration, then the final logger under the configured
// logs directory.
func setup() (*config.Config, *logger.Logger, error) {
	bootstrapLog, err := setupLogger(os.TempDir(), "likutei-yomi-bootstrap.log")
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return nil, nil, err
	}

	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	finalLog, err := setupLogger(cfg.Paths.BaseLogsDir, "likutei-yomi.log")
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return nil, nil, fmt.Errorf("failed to create final logger: %w", err)
	}

	return cfg, finalLog, nil
}

// app bundles the wired components a command needs.
type app struct {
	cfg        *config.Config
	log        *logger.Logger
	selector   *selector.Selector
	formatter  *message.Formatter
	pipeline   *speech.Pipeline
	audioCache *speech.AudioCache
}

// newApp wires the content pipeline: catalog, Sefaria client, formatter,
// pair cache, selector and (when enabled) the speech pipeline.
func newApp(cfg *config.Config, log *logger.Logger) (*app, error) {
	catalog, err := sefaria.LoadCatalog(cfg.Sefaria.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	client := sefaria.NewClient(
		cfg.Sefaria.BaseURL,
		cfg.Sefaria.WebURL,
		cfg.SefariaTimeout(),
		catalog,
		log,
	)

	formatter := message.NewFormatter(cfg.Message.MaxLength)
	pairCache := cache.New(cfg.Cache.Dir, formatter.DailyMessages, log)
	dailySelector := selector.New(client, pairCache, formatter.DailyMessages, log)

	application := &app{
		cfg:        cfg,
		log:        log,
		selector:   dailySelector,
		formatter:  formatter,
		pipeline:   nil,
		audioCache: nil,
	}

	if cfg.TTS.Enabled {
		application.audioCache = speech.NewAudioCache(
			filepath.Join(cfg.Cache.Dir, audioCacheSubdir))

		synthesizer := speech.NewHTTPClient(
			cfg.TTS.BaseURL,
			cfg.TTS.APIKey,
			cfg.TTS.VoiceName,
			cfg.TTS.LanguageCode,
			cfg.TTSTimeout(),
		)

		application.pipeline = speech.NewPipeline(
			synthesizer,
			speech.NewFFmpegConcatenator(),
			application.audioCache,
			cfg.TTS.MaxChunkChars,
			cfg.SilenceGap(),
			log,
		)
	}

	return application, nil
}

// openSubscribers opens the subscriber registry configured under [paths].
func openSubscribers(cfg *config.Config, log *logger.Logger) (*subscribers.Store, error) {
	store, err := subscribers.NewStore(cfg.Paths.SubscribersDB, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open subscriber store: %w", err)
	}

	return store, nil
}

func main() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
