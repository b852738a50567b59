package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/WilliamDrmrd/todo-app/cmd/server/commands"
)

// @title Todo API
// @version 1.0
// @description REST API for creating, listing, updating and completing todo items.

// @host localhost:3001
// @BasePath /
func main() {
	rootCmd := &cobra.Command{
		Use:   "todo-app",
		Short: "Todo API server",
		Long:  `todo-app serves a small REST API for creating, listing, updating and completing todo items.`,
	}

	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewMigrateCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
