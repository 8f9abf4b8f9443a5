package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/config"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/logger"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/storage"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "watch_tower",
	Short:         "Regulatory intelligence watch tower",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.LoadConfig(cfgFile)
		if err != nil {
			return err
		}
		if err := logger.InitLogger(c.Log.Level, c.Log.File); err != nil {
			return err
		}
		cfg = c
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "configs/config.yaml", "config file")
	rootCmd.AddCommand(newRunCmd(), newDomainsCmd(), newWatchesCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Printf("error: %v", err)
		os.Exit(1)
	}
}

// openStore 打开存储，调用方负责关闭
func openStore() (storage.Store, error) {
	return storage.Open(cfg)
}
