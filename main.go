package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/hesusruiz/ritelist/corpus"
)

// loadConfig reads the config file given in the command line, or the default one if it exists.
// Command line flags override the values in the file.
func loadConfig(c *cli.Context) (*corpus.Config, error) {
	var cfg *corpus.Config
	var err error

	configFile := c.String("config")
	if len(configFile) > 0 {
		cfg, err = corpus.LoadConfig(configFile)
	} else {
		cfg, err = corpus.LoadConfig(corpus.DefaultConfigFile)
		if errors.Is(err, fs.ErrNotExist) {
			cfg, err = corpus.DefaultConfig(), nil
		}
	}
	if err != nil {
		return nil, err
	}

	if c.IsSet("output") {
		cfg.OutDir = c.String("output")
	}
	if c.IsSet("format") {
		cfg.Format = c.String("format")
	}
	if c.IsSet("scope") {
		cfg.DefaultScope = c.String("scope")
	}
	if c.IsSet("sanitize") {
		cfg.Sanitize = c.Bool("sanitize")
	}
	cfg.DryRun = c.Bool("dryrun")

	if c.Args().Present() {
		cfg.Files = c.Args().Slice()
	}

	return cfg, cfg.Validate()
}

// build processes all the documents once
func build(cfg *corpus.Config, sugar *zap.SugaredLogger) error {
	b, err := corpus.New(cfg, sugar)
	if err != nil {
		return err
	}
	return b.Build(cfg.Files...)
}

// processWatch checks periodically if any input file has been modified, and if so
// it builds again all the documents
func processWatch(cfg *corpus.Config, sugar *zap.SugaredLogger) error {

	var old_timestamp time.Time

	// Loop forever
	for {

		// Get the most recent modified timestamp of the input files
		var current_timestamp time.Time
		for _, f := range cfg.Files {
			info, err := os.Stat(f)
			if err != nil {
				return err
			}
			if info.ModTime().After(current_timestamp) {
				current_timestamp = info.ModTime()
			}
		}

		// If current modified timestamp is newer than the previous timestamp, process the files
		if old_timestamp.Before(current_timestamp) {
			old_timestamp = current_timestamp
			fmt.Println("************Processing*************")
			if err := build(cfg, sugar); err != nil {
				// Keep watching, the author will fix the document
				sugar.Errorw("build failed", "error", err)
			}
		}

		// Check again in one second
		time.Sleep(1 * time.Second)

	}
}

// process is the main entry point of the program
func process(c *cli.Context) error {

	debug := c.Bool("debug")

	var z *zap.Logger
	var err error

	// Setup the logging system
	if debug {
		z, err = zap.NewDevelopment()
		if err != nil {
			panic(err)
		}
	} else {
		z, err = zap.NewProduction()
		if err != nil {
			panic(err)
		}
	}

	sugar := z.Sugar()
	defer sugar.Sync()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	// Default input file name
	if len(cfg.Files) == 0 {
		cfg.Files = []string{"index.txt"}
		fmt.Printf("no input file provided, using \"%v\"\n", cfg.Files[0])
	}

	// Print a message
	if !cfg.DryRun {
		fmt.Printf("processing %v and generating %v output in %v\n", cfg.Files, cfg.Format, cfg.OutDir)
	} else {
		fmt.Printf("dry run: processing %v without writing output\n", cfg.Files)
	}

	// This is useful for development.
	// If the user specified to watch, loop forever processing the input files when modified
	if c.Bool("watch") {
		return processWatch(cfg, sugar)
	}

	return build(cfg, sugar)
}

func main() {

	app := &cli.App{
		Name:     "ritelist",
		Version:  "v0.1.0",
		Compiled: time.Now(),
		Authors: []*cli.Author{
			{
				Name:  "Jesus Ruiz",
				Email: "hesus.ruiz@gmail.com",
			},
		},
		Usage:     "process rite documents declaring items, and aggregate the items in lists and tables",
		UsageText: "ritelist [options] [INPUT_FILES...] (default input file is index.txt)",
		Action:    process,
		ArgsUsage: "INPUT_FILES",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "read the build configuration from `FILE` (default is " + corpus.DefaultConfigFile + " if it exists)",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "write output files to `DIR`",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "output `FORMAT`: html or markdown",
			},
			&cli.StringFlag{
				Name:    "scope",
				Aliases: []string{"s"},
				Usage:   "default `SCOPE` of item lists and tables: local, document or corpus",
			},
			&cli.BoolFlag{
				Name:  "sanitize",
				Usage: "sanitize the generated HTML",
			},
			&cli.BoolFlag{
				Name:    "dryrun",
				Aliases: []string{"n"},
				Usage:   "do not generate output files, just process input files",
			},
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"d"},
				Usage:   "run in debug mode",
			},
			&cli.BoolFlag{
				Name:    "watch",
				Aliases: []string{"w"},
				Usage:   "watch the files for changes",
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		panic(err)
	}

}
