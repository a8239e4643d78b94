package main

import (
	"log"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "prenova",
	Short: "Pregnancy care API: risk classification, records and assistant chat",
}

func main() {
	rootCmd.AddCommand(serveCmd, checkModelsCmd)
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("prenova: %v", err)
	}
}
