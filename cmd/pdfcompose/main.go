// Command pdfcompose merges, splits, extracts, rotates and composes PDF
// pages from the command line, and serves the same operations to AI
// assistants over MCP.
//
// # Installation
//
//	go install github.com/lvillar/pdfcompose/cmd/pdfcompose@latest
//
// # Examples
//
//	pdfcompose merge -o book.pdf cover.pdf body.pdf
//	pdfcompose split --ranges "1-3,4-6" -d parts report.pdf
//	pdfcompose extract --pages "1,3,5-7" -o summary.pdf report.pdf
//	pdfcompose rotate --rotate 1:90 --rotate 3:0 -o fixed.pdf scan.pdf
//	pdfcompose compose --page a.pdf:1 --page b.pdf:2:90 -o mix.pdf
//	pdfcompose info report.pdf
//
// # Configuration for Claude Desktop
//
//	{
//	  "mcpServers": {
//	    "pdfcompose": {
//	      "command": "pdfcompose",
//	      "args": ["mcp"]
//	    }
//	  }
//	}
//
// Settings come from --config (YAML), a .env file and PDFCOMPOSE_*
// environment variables; see package config.
package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/lvillar/pdfcompose"
	"github.com/lvillar/pdfcompose/config"
	"github.com/lvillar/pdfcompose/dispatch"
	"github.com/lvillar/pdfcompose/pageops"
	"github.com/lvillar/pdfcompose/worker"
)

// Version is set at build time.
var Version = "dev"

// state is built once the global flags are parsed.
type state struct {
	configPath string
	cfg        *config.Config
	log        *logrus.Logger
	engine     *pageops.Engine
	dispatcher *dispatch.Dispatcher
	quiet      bool
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(color.Error, color.RedString("pdfcompose: %v", err))
		os.Exit(exitCode(err))
	}
}

func newApp() *cli.App {
	return (&state{}).app()
}

func (st *state) app() *cli.App {
	return &cli.App{
		Name:      "pdfcompose",
		Usage:     "merge, split, extract, rotate and compose PDF pages",
		Version:   Version,
		ErrWriter: color.Error,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a YAML configuration file",
				EnvVars: []string{"PDFCOMPOSE_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "worker",
				Usage: "where operations run: process, inprocess or off",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "do not print progress",
			},
		},
		Before: func(c *cli.Context) error {
			return st.setup(c)
		},
		After: func(c *cli.Context) error {
			if st.dispatcher != nil {
				return st.dispatcher.Close()
			}
			return nil
		},
		Commands: []*cli.Command{
			mergeCommand(st),
			splitCommand(st),
			extractCommand(st),
			rotateCommand(st),
			composeCommand(st),
			watermarkCommand(st),
			infoCommand(st),
			protectCommand(st),
			workerCommand(st),
			mcpCommand(st),
		},
	}
}

func (st *state) setup(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if v := c.String("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if v := c.String("worker"); v != "" {
		cfg.Worker = config.WorkerMode(v)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	st.configPath = c.String("config")
	st.cfg = cfg
	st.quiet = c.Bool("quiet")
	st.log = cfg.Logger()
	st.log.SetOutput(c.App.ErrWriter)
	st.engine = pageops.New(cfg.EngineOptions(st.log)...)

	opts := []dispatch.Option{dispatch.WithLogger(st.log)}
	switch cfg.Worker {
	case config.WorkerOff:
		opts = append(opts, dispatch.WithSpawner(nil))
	case config.WorkerProcess:
		opts = append(opts, dispatch.WithSpawner(st.spawnProcess))
	}
	st.dispatcher = dispatch.New(st.engine, opts...)
	return nil
}

// spawnProcess starts this executable as a worker process.
func (st *state) spawnProcess() (*worker.Client, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, err
	}
	return worker.SpawnCommand(st.workerCmd(exe), worker.WithClientLogger(st.log))
}

// workerCmd builds the command line of a worker process. The child reads
// the same configuration file and gets the resolved engine settings
// through the environment, which wins over the file, so both sides run
// identically configured engines.
func (st *state) workerCmd(exe string) *exec.Cmd {
	args := []string{"--log-level", st.cfg.LogLevel}
	if st.configPath != "" {
		args = append(args, "--config", st.configPath)
	}
	cmd := exec.Command(exe, append(args, "worker")...)
	cmd.Env = append(os.Environ(),
		config.EnvValidation+"="+st.cfg.Validation,
		config.EnvYieldEvery+"="+strconv.Itoa(st.cfg.YieldEvery),
	)
	cmd.Stderr = os.Stderr
	return cmd
}

// exitCode is 2 for caller mistakes, 3 for unreadable documents and 1
// otherwise.
func exitCode(err error) int {
	switch pdfcompose.KindOf(err) {
	case pdfcompose.ErrInvalidPageRange, pdfcompose.ErrInvalidPageNumbers,
		pdfcompose.ErrInvalidRotation, pdfcompose.ErrInsufficientInputs:
		return 2
	case pdfcompose.ErrCorruptedDocument, pdfcompose.ErrEncryptedOrCorrupted:
		return 3
	}
	var exit cli.ExitCoder
	if errors.As(err, &exit) {
		return exit.ExitCode()
	}
	return 1
}
