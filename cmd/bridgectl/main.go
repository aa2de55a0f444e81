package main

import (
	"fmt"
	"os"

	"github.com/scenebridge/bridgectl/internal/bridge"
	"github.com/scenebridge/bridgectl/internal/config"
	"github.com/scenebridge/bridgectl/internal/logging"
	"github.com/scenebridge/bridgectl/internal/scene"
)

func main() {
	logging.ConfigureRuntime()

	cfg := config.Config{Service: bridge.DefaultServiceConfig(), UnitScale: 1.0}
	if len(os.Args) > 1 {
		loaded, err := config.Load(os.Args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "bridgectl: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	sc := scene.NewMemScene("untitled")
	if cfg.UnitSystem != "" {
		sc.SetUnitSystem(cfg.UnitSystem, cfg.UnitScale)
	}

	svc := bridge.NewServiceWithConfig(cfg.Service, sc)
	if err := svc.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "bridgectl: %v\n", err)
		os.Exit(1)
	}
}
