package main

import (
	"flag"
	"fmt"
	"log"

	pf "github.com/jhoydich/mcl-localization"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (defaults to the built-in scenario)")
	flag.Parse()

	cfg := pf.DefaultConfig()
	if *configPath != "" {
		loaded, err := pf.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("loading config: %v", err)
		}
		cfg = *loaded
	}

	sim, err := pf.NewSimulation(cfg)
	if err != nil {
		log.Fatalf("creating simulation: %v", err)
	}

	history, err := sim.Run()
	if err != nil {
		log.Fatalf("running simulation: %v", err)
	}

	for _, s := range history.Steps {
		fmt.Println("Step:", s.Step,
			"Robot:", s.Robot.X(), s.Robot.Y(),
			"Filter:", s.Estimate.X(), s.Estimate.Y(),
			"Error:", sim.World.TorusDistance(s.Robot, s.Estimate))
	}
}
