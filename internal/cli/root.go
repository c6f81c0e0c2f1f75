package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	awsProfile, logLevel   string
	regionsFlag, kindsFlag string
	timeout                int
	webhookURL             string
	webhookUsername        string
	webhookPassword        string
)

var rootCommand = &cobra.Command{
	Use:     "coldsnap",
	Aliases: []string{"cs"},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// version, help, and the local snapshot-store commands run
		// without a region list
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}
		if cmd.Name() == "snapshots" {
			return nil
		}
		for p := cmd.Parent(); p != nil; p = p.Parent() {
			if p.Name() == "snapshots" {
				return nil
			}
		}

		if regionsFlag == "" {
			return fmt.Errorf("required flag(s) \"regions\" not set")
		}

		return nil
	},
	Short: "coldsnap: emergency pause/resume for AWS compute spend",
	Long: `coldsnap discovers EC2 instances, RDS databases, ECS services, and
Auto Scaling groups across one or more AWS regions, and can pause them
all in one pass (recording a snapshot of their original state) or
resume a prior pause from that snapshot.`,
}

func Execute() error {
	return rootCommand.Execute()
}

// parseRegions splits the comma-separated --regions flag.
func parseRegions() []string {
	return splitNonEmpty(regionsFlag)
}

// parseKinds splits the comma-separated --kinds flag.
func parseKinds() []string {
	return splitNonEmpty(kindsFlag)
}

func splitNonEmpty(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func init() {
	rootCommand.AddGroup(&cobra.Group{ID: "coldsnap", Title: "Coldsnap"})

	rootCommand.PersistentFlags().StringVar(&awsProfile, "profile", "", "Name of the AWS named profile to use")
	rootCommand.PersistentFlags().StringVar(&regionsFlag, "regions", "", "Comma-separated list of AWS regions to operate in (required)")
	rootCommand.PersistentFlags().StringVar(&kindsFlag, "kinds", "", "Comma-separated resource kinds to restrict to (instance,database,container-service,instance-group)")
	rootCommand.PersistentFlags().IntVar(&timeout, "timeout", 0, "Global execution timeout in seconds (0 = run indefinitely)")
	rootCommand.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Logging level (debug, info, warn, error)")
	rootCommand.PersistentFlags().StringVar(&webhookURL, "webhook-url", "", "Webhook URL for failure alerting")
	rootCommand.PersistentFlags().StringVar(&webhookUsername, "webhook-username", "", "Webhook username for alerting")
	rootCommand.PersistentFlags().StringVar(&webhookPassword, "webhook-password", "", "Webhook password for alerting")

	_ = viper.BindPFlag("profile", rootCommand.PersistentFlags().Lookup("profile"))
	_ = viper.BindPFlag("regions", rootCommand.PersistentFlags().Lookup("regions"))
	_ = viper.BindPFlag("timeout", rootCommand.PersistentFlags().Lookup("timeout"))
	_ = viper.BindPFlag("log-level", rootCommand.PersistentFlags().Lookup("log-level"))

	viper.SetEnvPrefix("COLDSNAP")
	viper.AutomaticEnv()
}
