package main

import (
	"fmt"
	"os"
	"time"

	"shield-go/internal/app"
	"shield-go/internal/model"

	"github.com/spf13/cobra"
)

// scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Check every enabled target for re-uploads of enabled assets",
	RunE: func(cmd *cobra.Command, args []string) error {
		quiet, _ := cmd.Flags().GetBool("quiet")

		return withApp(cmd, "Scan", args, func(a *app.ShieldApp) error {
			session, err := a.Scan(cmd.Context(), func(s model.MonitoringSession) {
				if !quiet {
					fmt.Fprintf(os.Stderr, "[%3d%%] %s\n", s.Progress, s.CurrentTarget)
				}
			})
			if err != nil {
				return err
			}

			fmt.Printf("Session %s %s: %d/%d pairs checked, %d matches, %d failed\n",
				session.ID,
				session.Status,
				session.TargetsScanned,
				session.TotalTargets,
				session.MatchesFound,
				session.PairsFailed,
			)
			return nil
		})
	},
}

// alerts command
var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Review alerts",
}

var alertsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List alerts, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		unreadOnly, _ := cmd.Flags().GetBool("unread")

		return withApp(cmd, "ListAlerts", args, func(a *app.ShieldApp) error {
			alerts, err := a.Alerts(unreadOnly)
			if err != nil {
				return err
			}

			if len(alerts) == 0 {
				fmt.Println("No alerts.")
				return nil
			}

			for _, al := range alerts {
				mark := "*"
				if al.Read {
					mark = " "
				}
				fmt.Printf("%s %s  %s  %-8s  %s\n", mark, al.ID, al.Timestamp.Format("2006-01-02 15:04:05"), al.Severity, al.Title)
				fmt.Printf("    %s\n", al.Description)
				if al.MatchURL != "" {
					fmt.Printf("    %s\n", al.MatchURL)
				}
			}
			return nil
		})
	},
}

var alertsReadCmd = &cobra.Command{
	Use:   "read [ID]",
	Short: "Mark one alert, or all alerts, as read",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "MarkAlertRead", args, func(a *app.ShieldApp) error {
			if len(args) == 1 {
				return a.MarkAlertRead(args[0])
			}
			n, err := a.MarkAllAlertsRead()
			if err != nil {
				return err
			}
			fmt.Printf("Marked %d alert(s) as read\n", n)
			return nil
		})
	},
}

var alertsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every alert",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "ClearAlerts", args, func(a *app.ShieldApp) error {
			if err := a.ClearAlerts(); err != nil {
				return err
			}
			fmt.Println("Alerts cleared.")
			return nil
		})
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View scan session history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		return withApp(cmd, "GetHistory", args, func(a *app.ShieldApp) error {
			sessions, err := a.History(limit)
			if err != nil {
				return err
			}

			if len(sessions) == 0 {
				fmt.Println("No scans recorded.")
				return nil
			}

			for _, s := range sessions {
				duration := ""
				if s.CompletedAt != nil {
					duration = s.CompletedAt.Sub(s.StartedAt).Truncate(time.Millisecond).String()
				}
				fmt.Printf("%s  %s  %-9s  %d/%d pairs  %d matches  %s\n",
					s.ID,
					s.StartedAt.Format("2006-01-02 15:04:05"),
					s.Status,
					s.TargetsScanned,
					s.TotalTargets,
					s.MatchesFound,
					duration,
				)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().BoolP("quiet", "q", false, "Do not print progress")

	alertsCmd.AddCommand(alertsListCmd)
	alertsListCmd.Flags().BoolP("unread", "u", false, "Only show unread alerts")
	alertsCmd.AddCommand(alertsReadCmd)
	alertsCmd.AddCommand(alertsClearCmd)
	rootCmd.AddCommand(alertsCmd)

	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 20, "Maximum number of sessions to show")
}
