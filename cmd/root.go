package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tosih/ecu-tuner/pkg/config"
	"github.com/tosih/ecu-tuner/pkg/decoder"
	"github.com/tosih/ecu-tuner/pkg/definitions"
	"github.com/tosih/ecu-tuner/pkg/extract"
	"github.com/tosih/ecu-tuner/pkg/locator"
	"github.com/tosih/ecu-tuner/pkg/logging"
	"github.com/tosih/ecu-tuner/pkg/models"
)

var (
	configPath  string
	debugMode   bool
	defsRef     string
	threshold   float64
	cfg         *config.Config
	logger      *zap.Logger
	declaredSet []models.Definition
)

var rootCmd = &cobra.Command{
	Use:           "ecutune",
	Short:         "ECU calibration map extractor and safe-limit calculator",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("debug") {
			cfg.Debug = debugMode
		}
		if cmd.Flags().Changed("definitions") {
			cfg.Definitions = defsRef
		}
		if cmd.Flags().Changed("threshold") {
			cfg.Locator.Threshold = threshold
		}

		logger = logging.InitLogger(cfg.Debug)
		if cfg.File != "" {
			logger.Debug("loaded config", zap.String("file", cfg.File))
		}

		declaredSet, err = definitions.Resolve(cfg.Definitions)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default ./ecutune.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&defsRef, "definitions", "d", "", "Map definitions: a builtin set name or a YAML/JSON file")
	rootCmd.PersistentFlags().Float64Var(&threshold, "threshold", 0, "Locator confidence threshold")
}

func newPipeline() *extract.Pipeline {
	return extract.New(extract.Config{
		Locator:     newLocator(),
		Decoder:     decoder.New(cfg.Decoder),
		Definitions: declaredSet,
		Workers:     cfg.Workers,
		Logger:      logger,
	})
}

func newLocator() *locator.Locator {
	return locator.New(cfg.Locator, logger)
}
