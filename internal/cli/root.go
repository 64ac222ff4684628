package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "immich2geekmagic",
	Short: "Sync today's Immich memories to a GeekMagic display",
	Long: "Finds \"on this day\" photos from previous years on an Immich server, " +
		"resizes them for the display and uploads them to a GeekMagic device, " +
		"retrying while the device is offline.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(syncCmd)
}
