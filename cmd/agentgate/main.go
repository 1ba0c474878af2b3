package main

import (
	"os"

	"github.com/spf13/cobra"

	"agentgate/internal/interfaces/cli/migrate"
	"agentgate/internal/interfaces/cli/server"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "agentgate",
		Short: "AgentGate - role-based permission engine for agent platforms",
		Long:  `AgentGate resolves identity claims into effective tool, model, and quota permissions, with an HTTP API for authorization checks and role administration.`,
	}

	rootCmd.AddCommand(
		server.NewCommand(),
		migrate.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
