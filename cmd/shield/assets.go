package main

import (
	"fmt"
	"os"

	"shield-go/internal/app"

	"github.com/spf13/cobra"
)

// asset command
var assetCmd = &cobra.Command{
	Use:   "asset",
	Short: "Manage protected assets",
}

var assetAddCmd = &cobra.Command{
	Use:   "add PATH",
	Short: "Fingerprint an image, or every image in a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		recursive, _ := cmd.Flags().GetBool("recursive")

		return withApp(cmd, "RegisterAsset", args, func(a *app.ShieldApp) error {
			info, err := os.Stat(args[0])
			if err != nil {
				return err
			}

			if info.IsDir() {
				count, err := a.RegisterDirectory(args[0], recursive)
				fmt.Printf("Registered %d asset(s)\n", count)
				if err != nil {
					return fmt.Errorf("some files failed: %w", err)
				}
				return nil
			}

			asset, err := a.RegisterAsset(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Registered %s  %s\n", asset.ID, asset.Filename)
			fmt.Printf("  aHash %s\n  dHash %s\n  pHash %s\n",
				asset.Hashes.AHash.Hash, asset.Hashes.DHash.Hash, asset.Hashes.PHash.Hash)
			return nil
		})
	},
}

var assetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List protected assets",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "ListAssets", args, func(a *app.ShieldApp) error {
			assets, err := a.ListAssets()
			if err != nil {
				return err
			}

			if len(assets) == 0 {
				fmt.Println("No protected assets.")
				return nil
			}

			for _, asset := range assets {
				state := "on "
				if !asset.MonitoringEnabled {
					state = "off"
				}
				scanned := "never"
				if asset.LastScanned != nil {
					scanned = asset.LastScanned.Format("2006-01-02 15:04:05")
				}
				fmt.Printf("%s  %s  %s  matches:%-3d scanned:%s  %s\n",
					asset.ID,
					state,
					asset.UploadedAt.Format("2006-01-02 15:04:05"),
					asset.MatchCount,
					scanned,
					asset.Filename,
				)
			}
			return nil
		})
	},
}

var assetRmCmd = &cobra.Command{
	Use:   "rm ID",
	Short: "Remove a protected asset and its thumbnail",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "RemoveAsset", args, func(a *app.ShieldApp) error {
			if err := a.RemoveAsset(args[0]); err != nil {
				return err
			}
			fmt.Printf("Removed %s\n", args[0])
			return nil
		})
	},
}

func newAssetMonitoringCmd(use string, enabled bool) *cobra.Command {
	verb := "Disable"
	if enabled {
		verb = "Enable"
	}
	return &cobra.Command{
		Use:   use + " ID",
		Short: verb + " monitoring of an asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, "SetMonitoring", args, func(a *app.ShieldApp) error {
				if err := a.SetMonitoring(args[0], enabled); err != nil {
					return err
				}
				fmt.Printf("%sd monitoring for %s\n", verb, args[0])
				return nil
			})
		},
	}
}

var assetThumbnailCmd = &cobra.Command{
	Use:   "thumbnail ID OUTPUT",
	Short: "Decrypt an asset's thumbnail to a PNG file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		passphrase, err := readPassphrase("Passphrase: ")
		if err != nil {
			return err
		}

		return withApp(cmd, "ExportThumbnail", args[:1], func(a *app.ShieldApp) error {
			if err := a.ExportThumbnail(args[0], passphrase, args[1]); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", args[1])
			return nil
		})
	},
}

func init() {
	assetCmd.AddCommand(assetAddCmd)
	assetAddCmd.Flags().BoolP("recursive", "r", false, "Recurse into subdirectories")
	assetCmd.AddCommand(assetListCmd)
	assetCmd.AddCommand(assetRmCmd)
	assetCmd.AddCommand(newAssetMonitoringCmd("enable", true))
	assetCmd.AddCommand(newAssetMonitoringCmd("disable", false))
	assetCmd.AddCommand(assetThumbnailCmd)

	rootCmd.AddCommand(assetCmd)
}
