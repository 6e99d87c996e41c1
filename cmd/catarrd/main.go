package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "config.toml", "Path to config file")
	writeConfig := flag.Bool("write-config", false, "Write an example config to the config path and exit")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("catarrd %s\n", version)
		os.Exit(0)
	}

	// .env values feed the config file's ${VAR} substitution.
	_ = godotenv.Load()

	if *writeConfig {
		if err := writeExampleConfig(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("wrote %s\n", *configPath)
		os.Exit(0)
	}

	if err := runServer(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
