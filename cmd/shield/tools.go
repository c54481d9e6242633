package main

import (
	"fmt"

	"shield-go/internal/app"
	"shield-go/internal/model"
	"shield-go/internal/watch"

	"github.com/spf13/cobra"
)

var hashCmd = &cobra.Command{
	Use:   "hash IMAGE",
	Short: "Print the aHash, dHash and pHash of an image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "HashImage", args, func(a *app.ShieldApp) error {
			fp, err := a.HashImage(args[0])
			if err != nil {
				return err
			}
			for _, algo := range model.Algorithms() {
				r := fp.Get(algo)
				fmt.Printf("%-5s  %s  %s\n", r.Algorithm, r.Hash, r.Size)
			}
			return nil
		})
	},
}

var compareCmd = &cobra.Command{
	Use:   "compare HASH1 HASH2",
	Short: "Compare two hex hashes of the same algorithm",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		algoName, _ := cmd.Flags().GetString("algorithm")
		algo, err := model.ParseAlgorithm(algoName)
		if err != nil {
			return err
		}

		return withApp(cmd, "CompareHex", args, func(a *app.ShieldApp) error {
			cmp, err := a.CompareHex(args[0], args[1], algo)
			if err != nil {
				return err
			}
			fmt.Printf("distance:   %d\n", cmp.Distance)
			fmt.Printf("similarity: %d%%\n", cmp.Similarity)
			fmt.Printf("match:      %t\n", cmp.IsMatch)
			return nil
		})
	},
}

var searchCmd = &cobra.Command{
	Use:   "search IMAGE",
	Short: "Find protected assets similar to an image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		algoName, _ := cmd.Flags().GetString("algorithm")
		algo, err := model.ParseAlgorithm(algoName)
		if err != nil {
			return err
		}

		return withApp(cmd, "SearchImage", args, func(a *app.ShieldApp) error {
			matches, err := a.SearchImage(args[0], algo)
			if err != nil {
				return err
			}

			if len(matches) == 0 {
				fmt.Println("No similar assets.")
				return nil
			}
			for _, m := range matches {
				fmt.Printf("%s  %3d%%  distance:%-2d  %s\n", m.AssetID, m.Similarity, m.Distance, m.StoredAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		})
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch [DIR]",
	Short: "Register images dropped into an inbox directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := ""
		if len(args) > 0 {
			dir = args[0]
		}

		return withApp(cmd, "Watch", args, func(a *app.ShieldApp) error {
			return a.Watch(cmd.Context(), dir, func(r watch.Result) {
				if r.Err != nil {
					fmt.Printf("FAILED  %s: %v\n", r.Path, r.Err)
					return
				}
				fmt.Printf("Registered %s  %s\n", r.Asset.ID, r.Path)
			})
		})
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API and Prometheus metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "Serve", args, func(a *app.ShieldApp) error {
			return a.Serve(cmd.Context())
		})
	},
}

func init() {
	rootCmd.AddCommand(hashCmd)
	rootCmd.AddCommand(compareCmd)
	compareCmd.Flags().StringP("algorithm", "a", "pHash", "Hash algorithm: aHash, dHash or pHash")
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringP("algorithm", "a", "pHash", "Hash algorithm: aHash, dHash or pHash")
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
}
