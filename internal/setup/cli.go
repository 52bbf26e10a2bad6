package setup

import (
	"context"
	"fmt"
	"io"
	"os"
)

// CLI runs the setup subcommands of the lite binary.
type CLI struct {
	out io.Writer
}

// NewCLI creates a CLI printing to out.
func NewCLI(out io.Writer) *CLI {
	return &CLI{out: out}
}

// Run executes the setup command based on the provided arguments.
func (c *CLI) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		c.showHelp()
		return nil
	}

	switch args[0] {
	case "register":
		return c.register(args[1:])
	case "status":
		return c.status(ctx, args[1:])
	case "help", "--help", "-h":
		c.showHelp()
		return nil
	default:
		c.showHelp()
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func (c *CLI) showHelp() {
	fmt.Fprint(c.out, `
Posbindu risk engine setup

Usage:
  mcp-server-lite setup <command> [options]

Commands:
  register  Register this binary with the desktop MCP client
  status    Show registration and data directory status

Options:
  --config, -c    Client config file (default: platform location)
  --binary, -b    Server binary (default: this executable)
  --data-dir, -d  Data directory exported as POSBINDU_DATA_DIR
  --log-level     Log level exported as POSBINDU_LOG_LEVEL
`)
}

func parseOptions(args []string) (Options, error) {
	var opts Options
	for i := 0; i < len(args); i++ {
		if i+1 >= len(args) {
			return opts, fmt.Errorf("missing value for %s", args[i])
		}
		switch args[i] {
		case "--config", "-c":
			opts.ConfigPath = args[i+1]
		case "--binary", "-b":
			opts.BinaryPath = args[i+1]
		case "--data-dir", "-d":
			opts.DataDir = args[i+1]
		case "--log-level":
			opts.LogLevel = args[i+1]
		default:
			return opts, fmt.Errorf("unknown option: %s", args[i])
		}
		i++
	}

	if opts.ConfigPath == "" {
		path, err := DefaultClientConfigPath()
		if err != nil {
			return opts, err
		}
		opts.ConfigPath = path
	}
	return opts, nil
}

func (c *CLI) register(args []string) error {
	opts, err := parseOptions(args)
	if err != nil {
		return err
	}
	if opts.BinaryPath == "" {
		execPath, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to resolve executable: %w", err)
		}
		opts.BinaryPath = execPath
	}

	if err := Register(opts); err != nil {
		return fmt.Errorf("failed to register server: %w", err)
	}

	fmt.Fprintf(c.out, "Registered %s in %s\n", ServerName, opts.ConfigPath)
	fmt.Fprintf(c.out, "  Binary: %s\n", opts.BinaryPath)
	if opts.DataDir != "" {
		fmt.Fprintf(c.out, "  Data directory: %s\n", opts.DataDir)
	}
	fmt.Fprintln(c.out, "Restart the MCP client to load the new configuration.")
	return nil
}

func (c *CLI) status(ctx context.Context, args []string) error {
	opts, err := parseOptions(args)
	if err != nil {
		return err
	}

	status, err := GetStatus(ctx, opts.ConfigPath)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "Client config: %s\n", status.ConfigPath)
	fmt.Fprintf(c.out, "Registered:    %t\n", status.Registered)
	if status.Registered {
		fmt.Fprintf(c.out, "Binary:        %s (found: %t)\n", status.BinaryPath, status.BinaryFound)
	}
	fmt.Fprintf(c.out, "Data dir:      %s\n", status.DataDir)
	if status.DatabaseExists {
		fmt.Fprintf(c.out, "Assessments:   %d\n", status.Assessments)
	} else {
		fmt.Fprintln(c.out, "Assessments:   database not created yet")
	}
	for _, issue := range status.Issues {
		fmt.Fprintf(c.out, "  ! %s\n", issue)
	}
	return nil
}
