package main

import (
	"fmt"
	"os"

	"github.com/anshMconsultadd/timesheet-bot/internal/app"
	"github.com/anshMconsultadd/timesheet-bot/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := app.Migrate(cfg); err != nil {
			fmt.Fprintln(os.Stderr, "migrate:", err)
			os.Exit(1)
		}
		fmt.Println("migration complete")
		return
	}

	if err := app.Run(cfg); err != nil {
		fmt.Fprintln(os.Stderr, "run:", err)
		os.Exit(1)
	}
}
