// Command transcribe serves the audio transcription page.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/kbukum/transcribe/app"
	"github.com/kbukum/transcribe/config"
	"github.com/kbukum/transcribe/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "transcribe:", err)
		os.Exit(1)
	}
}

func run() error {
	configFile := flag.String("config", "", "path to config.yml (searched for when empty)")
	envFile := flag.String("env", "", "path to a .env file (searched for when empty)")
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Short())
		return nil
	}

	var opts []config.LoaderOption
	if *configFile != "" {
		opts = append(opts, config.WithConfigFile(*configFile))
	}
	if *envFile != "" {
		opts = append(opts, config.WithEnvFile(*envFile))
	}
	var cfg app.Config
	if err := config.LoadConfig(app.ServiceName, &cfg, opts...); err != nil {
		return err
	}

	ctx := context.Background()
	a, err := app.New(ctx, &cfg)
	if err != nil {
		return err
	}
	return a.Run(ctx)
}
