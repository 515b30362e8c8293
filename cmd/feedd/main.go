// Command feedd serves the friends activity feed and runs its maintenance jobs.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// @title Habbo Feed API
// @version 1.0
// @description 好友动态聚合：实时活动流与照片分页
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string
	root := &cobra.Command{
		Use:           "feedd",
		Short:         "Habbo friends activity feed",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default: ./config/config.yaml)")

	root.AddCommand(
		newServeCmd(&cfgPath),
		newTrackCmd(&cfgPath),
		newSweepCmd(&cfgPath),
	)
	return root
}
