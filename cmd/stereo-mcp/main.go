package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/ironsheep/stereo-objects-mcp/internal/config"
	"github.com/ironsheep/stereo-objects-mcp/internal/logging"
	"github.com/ironsheep/stereo-objects-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const (
	flagConfig      = "config"
	flagLogLevel    = "log-level"
	flagCalibration = "calibration"
	flagColorParams = "color-params"
	flagParallel    = "parallel"

	flagLeft   = "left"
	flagRight  = "right"
	flagColors = "colors"
	flagImage  = "image"
)

func main() {
	server.Version = Version

	var (
		cfg    config.Config
		logger *zap.SugaredLogger
	)

	app := &cli.App{
		Name:    "stereo-objects-mcp",
		Usage:   "MCP server for colored object localization in stereo image pairs",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
				EnvVars: []string{"STEREO_MCP_CONFIG"},
			},
			&cli.StringFlag{
				Name:  flagLogLevel,
				Usage: "log level (debug, info, warn, error); defaults to $" + logging.EnvLevel,
			},
			&cli.StringFlag{
				Name:    flagCalibration,
				Usage:   "stereo calibration `FILE` loaded at startup",
				EnvVars: []string{"STEREO_MCP_CALIBRATION"},
			},
			&cli.StringFlag{
				Name:    flagColorParams,
				Usage:   "color parameter `FILE` loaded at startup",
				EnvVars: []string{"STEREO_MCP_COLOR_PARAMS"},
			},
			&cli.BoolFlag{
				Name:  flagParallel,
				Usage: "segment the left and right images concurrently",
			},
		},
		Before: func(c *cli.Context) error {
			var err error
			cfg, err = loadConfig(c)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			// Logs go to stderr; stdout carries the MCP protocol.
			logger, err = logging.New(cfg.LogLevel)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			return nil
		},
		After: func(c *cli.Context) error {
			if logger != nil {
				//nolint:errcheck
				logger.Sync()
			}
			return nil
		},
		Action: func(c *cli.Context) error {
			return serve(cfg, logger)
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the MCP server over stdin/stdout",
				Action: func(c *cli.Context) error {
					return serve(cfg, logger)
				},
			},
			{
				Name:      "locate",
				Usage:     "locate objects in one stereo pair and print them as JSON",
				UsageText: "stereo-objects-mcp --calibration rig.json locate --left l.png --right r.png [--colors red,blue]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagLeft, Usage: "left image `FILE`", Required: true},
					&cli.StringFlag{Name: flagRight, Usage: "right image `FILE`", Required: true},
					&cli.StringSliceFlag{Name: flagColors, Usage: "colors to search for"},
				},
				Action: func(c *cli.Context) error {
					args := map[string]interface{}{
						"left_path":  c.String(flagLeft),
						"right_path": c.String(flagRight),
					}
					if colors := c.StringSlice(flagColors); len(colors) > 0 {
						args["colors"] = colors
					}
					return runTool(server.New(cfg, logger), "objects_locate", args)
				},
			},
			{
				Name:  "find",
				Usage: "find objects in a single image and print them as JSON",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagImage, Usage: "image `FILE`", Required: true},
					&cli.StringSliceFlag{Name: flagColors, Usage: "colors to search for"},
				},
				Action: func(c *cli.Context) error {
					args := map[string]interface{}{"path": c.String(flagImage)}
					if colors := c.StringSlice(flagColors); len(colors) > 0 {
						args["colors"] = colors
					}
					return runTool(server.New(cfg, logger), "objects_find", args)
				},
			},
			{
				Name:  "version",
				Usage: "print build information",
				Action: func(c *cli.Context) error {
					fmt.Printf("stereo-objects-mcp %s\n", Version)
					fmt.Printf("  Build time: %s\n", BuildTime)
					fmt.Printf("  Git commit: %s\n", GitCommit)
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration file, if any, and applies the global
// flags on top of it.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Default()
	if path := c.String(flagConfig); path != "" {
		var err error
		if cfg, err = config.LoadFile(path); err != nil {
			return cfg, err
		}
	}
	if c.IsSet(flagLogLevel) {
		cfg.LogLevel = c.String(flagLogLevel)
	} else {
		cfg.LogLevel = logging.LevelFromEnv(cfg.LogLevel)
	}
	if c.IsSet(flagCalibration) {
		cfg.CalibrationPath = c.String(flagCalibration)
	}
	if c.IsSet(flagColorParams) {
		cfg.ColorParamsPath = c.String(flagColorParams)
	}
	if c.IsSet(flagParallel) {
		cfg.Parallel = c.Bool(flagParallel)
	}
	return cfg, errors.Wrap(cfg.Validate(), "invalid configuration")
}

func serve(cfg config.Config, logger *zap.SugaredLogger) error {
	logger.Debugw("starting MCP server", "version", Version, "built", BuildTime, "commit", GitCommit)
	srv := server.New(cfg, logger)
	return srv.Run()
}

func runTool(srv *server.Server, name string, args map[string]interface{}) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return err
	}
	result, err := srv.CallTool(name, raw)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
