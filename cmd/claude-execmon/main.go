package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	rootCmd    = &cobra.Command{
		Use:   "claude-execmon",
		Short: "Claude Exec Monitor - workflow execution dashboard",
		Long: `Claude Exec Monitor reconciles the state files the Claude workflow CLI
writes while executing issues - global run state, per-issue plans, the work
queue, and the release registry - into one consistent live view, served as a
terminal dashboard or over HTTP.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
