package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"example.com/backstage/services/orchestrator/config"
)

var (
	cfgFile string
	cfg     config.Config
)

var rootCmd = &cobra.Command{
	Use:   "orchestrator-service",
	Short: "Agent swarm orchestration service using event sourcing",
	Long:  `A service that coordinates a swarm of worker agents, reconstructing all state from an append-only event log`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
}

func initConfig() {
	var err error

	if cfgFile != "" {
		config.SetConfigFile(cfgFile)
	}

	cfg, err = config.LoadConfig()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
}
