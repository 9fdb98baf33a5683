package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"holly/emu/log"
)

type mode byte

const (
	demoMode    mode = iota // Render frames on the modeled board
	infoMode                // Show resolved video mode and VRAM layout
	versionMode             // Show hollytool version
)

type (
	CLI struct {
		Demo    Demo    `cmd:"" help:"Bring up the modeled board and render frames. (default command)" default:"true"`
		Info    Info    `cmd:"" help:"Show resolved video mode and VRAM layout."`
		Version Version `cmd:"" help:"Show hollytool version."`

		Config string     `help:"Path to config file." type:"path" placeholder:"config.toml"`
		Log    logModMask `help:"${log_help}" placeholder:"mod0,mod1,..."`

		mode mode
	}

	Demo struct {
		Frames int    `name:"frames" help:"Number of frames to render." default:"60"`
		Out    string `name:"out" help:"Write the final frame as BMP." type:"path" placeholder:"frame.bmp"`
	}

	Info struct{}

	Version struct{}
)

var vars = kong.Vars{
	"log_help": "Enable logging for specified modules.",
}

func parseArgs(args []string) CLI {
	var cfg CLI
	parser, err := kong.New(&cfg,
		kong.Name("hollytool"),
		kong.Description("NAOMI HOLLY graphics driver workbench."),
		kong.UsageOnError(),
		kong.Help(printHelp),
		vars)
	if err != nil {
		panic(err)
	}

	ctx, err := parser.Parse(args)
	checkf(err, "failed to parse command line")
	checkf(ctx.Error, "failed to parse command line")

	switch ctx.Command() {
	case "info":
		cfg.mode = infoMode
	case "version":
		cfg.mode = versionMode
	default:
		cfg.mode = demoMode
	}
	return cfg
}

func printHelp(options kong.HelpOptions, ctx *kong.Context) error {
	if err := kong.DefaultHelpPrinter(options, ctx); err != nil {
		return err
	}

	loggingHelp := `
Log modules:
  The --log flag accepts a comma-separated list of modules.

  Valid log modules are:
%s

  As a special case, the following values are accepted:
    - no                     Disable all logging.
    - all                    Enable all logs.
`
	var strs []string
	for _, m := range log.ModuleNames() {
		strs = append(strs, "    - "+m)
	}

	fmt.Fprintf(os.Stderr, loggingHelp, strings.Join(strs, "\n"))
	return nil
}

type logModMask log.ModuleMask

// Decode decodes a comma-separated list of module names into a module mask.
//
// Implements kong.MapperValue interface.
func (lm logModMask) Decode(ctx *kong.DecodeContext) error {
	nolog := false
	allLogs := false

	tok := ctx.Scan.Pop()
	for _, v := range strings.Split(tok.Value.(string), ",") {
		switch v {
		case "all":
			allLogs = true
		case "no":
			nolog = true
		default:
			mod, ok := log.ModuleByName(v)
			if !ok {
				return fmt.Errorf("unknown log module %s", v)
			}
			lm |= logModMask(mod.Mask())
		}
	}

	if nolog {
		if allLogs {
			return fmt.Errorf("cannot use 'all' and 'no' together")
		}
		if lm != 0 {
			return fmt.Errorf("cannot combine 'no' with other log modules")
		}
		log.Disable()
		return nil
	}

	if allLogs {
		lm = logModMask(log.ModuleMaskAll)
	}

	log.EnableDebugModules(log.ModuleMask(lm))
	return nil
}
