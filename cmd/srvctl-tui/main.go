package main

import (
	"flag"
	"os"

	"github.com/charmbracelet/log"

	"srvctl/internal/app"
	"srvctl/internal/tui"
)

func main() {
	configPath := flag.String("config", os.Getenv("SRVCTL_CONFIG"), "Path to JSON config file")
	flag.Parse()

	controller := app.New(app.Options{ConfigPath: *configPath})
	if err := tui.Run(controller); err != nil {
		log.Fatal("tui exited with error", "err", err)
	}
}
