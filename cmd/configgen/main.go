package main

import (
	"flag"
	"log"

	"github.com/danmuck/voxctl/internal/config"
)

func main() {
	output := flag.String("output", "node.toml", "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", "node.toml", "config path for validation")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	if *validate {
		cfg, err := config.LoadNodeConfig(*input)
		if err != nil {
			log.Fatal(err)
		}
		if _, err := cfg.Jurisdiction(); err != nil {
			log.Fatal(err)
		}
		log.Printf("Validated node config at %s", *input)
		return
	}

	if err := config.WriteTemplate(*output, *force); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote node config template to %s", *output)
}
