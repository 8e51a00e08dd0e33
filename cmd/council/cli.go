package main

import (
	"fmt"
	"time"

	"github.com/alecthomas/kong"
)

// CLI represents the council command-line interface.
var CLI struct {
	Debug      bool          `help:"Enable debug mode." short:"d" env:"COUNCIL_DEBUG"`
	Version    VersionCmd    `cmd:"" help:"Print version information."`
	Help       HelpCmd       `cmd:"" hidden:"" default:"1"`
	List       ListCmd       `cmd:"" help:"List registered provider backends."`
	Run        RunCmd        `cmd:"" help:"Run a deliberation over a task."`
	Completion CompletionCmd `cmd:"" help:"Generate shell completion scripts."`
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (v *VersionCmd) Run() error {
	printVersion()
	return nil
}

// HelpCmd prints help.
type HelpCmd struct{}

func (h *HelpCmd) Run(ctx *kong.Context) error {
	appCtx := *ctx
	if len(appCtx.Path) > 1 {
		appCtx.Path = appCtx.Path[:1]
	}
	return appCtx.PrintUsage(false)
}

// ListCmd lists registered capabilities.
type ListCmd struct{}

func (l *ListCmd) Run() error {
	listCapabilities()
	return nil
}

// RunCmd runs a deliberation over a task.
type RunCmd struct {
	// Required
	Task string `arg:"" help:"The question or task to deliberate on." required:""`

	// Role selection (defaults to every role in the config)
	Role      []string `help:"Role names to include (repeatable)." short:"r" name:"role" group:"roles" xor:"role-selection"`
	RolesGlob string   `help:"Comma-separated role glob patterns (e.g., 'reviewer-*')." name:"roles-glob" group:"roles" xor:"role-selection"`

	// Configuration
	ConfigFile string `help:"YAML config file path." type:"existingfile" name:"config-file" required:""`
	Profile    string `help:"Named profile to apply on top of the base config." name:"profile"`

	// Execution
	Timeout         time.Duration `help:"Overall deliberation timeout." default:"10m"`
	ProviderTimeout time.Duration `help:"Per-provider-call timeout." name:"provider-timeout" default:"2m"`

	// Output
	Format  string `help:"Output format." enum:"json,jsonl" default:"json" short:"f"`
	Output  string `help:"Output file path." short:"o" type:"path"`
	Verbose bool   `help:"Verbose output." short:"v"`
}

func (r *RunCmd) Run() error {
	return r.execute()
}

func (r *RunCmd) Validate() error {
	if r.Task == "" {
		return fmt.Errorf("task argument is required")
	}
	if len(r.Role) > 0 && r.RolesGlob != "" {
		return fmt.Errorf("cannot use --role with --roles-glob")
	}
	return nil
}

// printVersion prints the version string.
func printVersion() {
	fmt.Printf("council %s\n", version)
}

// CompletionCmd generates shell completion scripts.
type CompletionCmd struct {
	Shell string `arg:"" enum:"bash,zsh,fish" help:"Shell type (bash, zsh, fish)."`
}

func (c *CompletionCmd) Run() error {
	switch c.Shell {
	case "bash":
		fmt.Println("# Bash completion for council")
		fmt.Println("# Add to ~/.bashrc:")
		fmt.Println("# eval \"$(council completion bash)\"")
	case "zsh":
		fmt.Println("# Zsh completion for council")
		fmt.Println("# Add to ~/.zshrc:")
		fmt.Println("# eval \"$(council completion zsh)\"")
	case "fish":
		fmt.Println("# Fish completion for council")
		fmt.Println("# Run: council completion fish | source")
	}
	return nil
}
