package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"

	"github.com/Bossnicks/tone-survey/internal/responselog"
	"github.com/Bossnicks/tone-survey/pkg/auth"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	exportOut string
	resetYes  bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Выгрузить лог ответов как есть",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := responselog.New(cfg.ResponseLogPath, cfg.PreSurveyColumns)
		if exportOut == "" || exportOut == "-" {
			w := bufio.NewWriter(cmd.OutOrStdout())
			if err := log.Export(w); err != nil {
				return err
			}
			return w.Flush()
		}

		f, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("не удалось создать %s: %w", exportOut, err)
		}
		if err := log.Export(f); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	},
}

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Показать число строк в логе ответов",
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := responselog.New(cfg.ResponseLogPath, cfg.PreSurveyColumns).Count()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), n)
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Стереть все ответы, оставив заголовок",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !resetYes {
			return errors.New("сброс необратим: повторите с --yes")
		}
		if err := responselog.New(cfg.ResponseLogPath, cfg.PreSurveyColumns).Reset(); err != nil {
			return err
		}
		logger.Warn("лог ответов сброшен из CLI", zap.String("path", cfg.ResponseLogPath))
		return nil
	},
}

var hashSecretCmd = &cobra.Command{
	Use:   "hash-secret <secret>",
	Short: "Напечатать bcrypt-хеш для ADMIN_SECRET_HASH",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := auth.HashSecret(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "-", "куда писать CSV (- для stdout)")
	resetCmd.Flags().BoolVar(&resetYes, "yes", false, "подтвердить сброс")
}
