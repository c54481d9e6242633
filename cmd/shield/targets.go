package main

import (
	"fmt"

	"shield-go/internal/app"
	"shield-go/internal/model"
	"shield-go/internal/shield"

	"github.com/spf13/cobra"
)

// target command
var targetCmd = &cobra.Command{
	Use:   "target",
	Short: "Manage monitoring targets",
}

var targetAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Add a monitoring target",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		category, _ := cmd.Flags().GetString("category")
		risk, _ := cmd.Flags().GetString("risk")
		url, _ := cmd.Flags().GetString("url")
		disabled, _ := cmd.Flags().GetBool("disabled")

		return withApp(cmd, "AddTarget", args, func(a *app.ShieldApp) error {
			target, err := a.AddTarget(shield.TargetSpec{
				Name:      args[0],
				Category:  category,
				RiskLevel: model.RiskLevel(risk),
				URL:       url,
				Enabled:   !disabled,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Added target %s (%s)\n", target.Name, target.ID)
			return nil
		})
	},
}

var targetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List monitoring targets",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "ListTargets", args, func(a *app.ShieldApp) error {
			targets, err := a.ListTargets()
			if err != nil {
				return err
			}

			if len(targets) == 0 {
				fmt.Println("No monitoring targets.")
				return nil
			}

			for _, t := range targets {
				state := "on "
				if !t.Enabled {
					state = "off"
				}
				fmt.Printf("%-20s  %s  %-6s  %-10s  %s\n", t.Name, state, t.RiskLevel, t.Category, t.URL)
			}
			return nil
		})
	},
}

var targetRmCmd = &cobra.Command{
	Use:   "rm NAME|ID",
	Short: "Remove a monitoring target",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "RemoveTarget", args, func(a *app.ShieldApp) error {
			if err := a.RemoveTarget(args[0]); err != nil {
				return err
			}
			fmt.Printf("Removed target %s\n", args[0])
			return nil
		})
	},
}

func newTargetToggleCmd(use string, enabled bool) *cobra.Command {
	verb := "Disable"
	if enabled {
		verb = "Enable"
	}
	return &cobra.Command{
		Use:   use + " NAME|ID",
		Short: verb + " a monitoring target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, "SetTargetEnabled", args, func(a *app.ShieldApp) error {
				if err := a.SetTargetEnabled(args[0], enabled); err != nil {
					return err
				}
				fmt.Printf("%sd target %s\n", verb, args[0])
				return nil
			})
		},
	}
}

var targetImportCmd = &cobra.Command{
	Use:   "import [FILE]",
	Short: "Create or update targets from a YAML targets file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) > 0 {
			path = args[0]
		}

		return withApp(cmd, "ImportTargets", args, func(a *app.ShieldApp) error {
			created, updated, err := a.ImportTargets(path)
			if err != nil {
				return err
			}
			fmt.Printf("Imported targets: %d created, %d updated\n", created, updated)
			return nil
		})
	},
}

func init() {
	targetCmd.AddCommand(targetAddCmd)
	targetAddCmd.Flags().StringP("category", "c", "", "Site category, e.g. forum or gallery")
	targetAddCmd.Flags().StringP("risk", "r", "", "Risk level: low, medium or high (default medium)")
	targetAddCmd.Flags().StringP("url", "u", "", "Page the crawler fetches")
	targetAddCmd.Flags().Bool("disabled", false, "Add the target without enabling it")
	targetCmd.AddCommand(targetListCmd)
	targetCmd.AddCommand(targetRmCmd)
	targetCmd.AddCommand(newTargetToggleCmd("enable", true))
	targetCmd.AddCommand(newTargetToggleCmd("disable", false))
	targetCmd.AddCommand(targetImportCmd)

	rootCmd.AddCommand(targetCmd)
}
