package main

import (
	"fmt"
	"os"

	"github.com/Bossnicks/tone-survey/config"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	envFile string
	debug   bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "survey",
	Short: "Опрос с оценкой коротких аудиостимулов",
	Long: `Сервер анкеты: участник слушает стимулы в случайном порядке и ставит
три оценки по шкале 1-5; ответы дописываются в CSV-лог.

Команды export, count и reset работают с тем же логом без запуска сервера.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadConfig(envFile)
		if err != nil {
			return err
		}

		zc := zap.NewProductionConfig()
		level, err := zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("LOG_LEVEL: %w", err)
		}
		if debug {
			level = zapcore.DebugLevel
		}
		zc.Level = zap.NewAtomicLevelAt(level)
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("не удалось создать логгер: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "путь к .env файлу")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "подробный лог")

	rootCmd.AddCommand(serveCmd, exportCmd, countCmd, resetCmd, hashSecretCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
