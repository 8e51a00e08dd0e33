package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	// Import for side effects: register all provider backends via init()
	_ "github.com/praetorian-inc/council/internal/providers/bedrock"
	_ "github.com/praetorian-inc/council/internal/providers/openai"
	_ "github.com/praetorian-inc/council/internal/providers/replicate"
)

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("council"),
		kong.Description("Council - multi-model deliberation engine"),
		kong.UsageOnError(),
		kong.Vars{"version": version},
		kong.Exit(func(code int) {
			if code != 0 {
				os.Exit(2)
			}
			os.Exit(0)
		}),
	)

	err := ctx.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
