package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"

	configPath string
	debug      bool

	rootCmd = &cobra.Command{
		Use:   "awslimits",
		Short: "AWS usage and service limit collector",
		Long: `awslimits - AWS usage and service limit collector

awslimits reads current resource usage (Auto Scaling, DynamoDB, EC2, ELB, RDS)
and account limits (Auto Scaling, EC2) from the AWS APIs of one region and
emits them as metrics keyed aws_service.using_resource.* and aws_service.limit.*.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "awslimits %s\n", version)
		},
	}
)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetVersionTemplate(`awslimits {{.Version}} - AWS usage and service limit collector
`)
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "awslimits.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.AddCommand(versionCmd)
}
