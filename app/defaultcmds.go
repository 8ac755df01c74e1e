package app

import (
	"github.com/spf13/cobra"
)

// CreateServeCmd create serve command
func CreateServeCmd(handler func(cmd *cobra.Command, args []string)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "command for starting pools, maintenance and the stats HTTP server",
		Run:   handler,
	}
}

// CreateStatusCmd create status command
func CreateStatusCmd(handler func(cmd *cobra.Command, args []string)) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "command for checking every configured pool once and printing its status",
		Run:   handler,
	}
}
