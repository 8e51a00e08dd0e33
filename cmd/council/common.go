package main

import (
	"fmt"

	"github.com/praetorian-inc/council/internal/providers"
)

const version = "0.1.0"

func listCapabilities() {
	fmt.Println("Registered Capabilities")
	fmt.Println("=======================")
	fmt.Println()

	fmt.Printf("Provider backends (%d):\n", providers.Registry.Count())
	for _, name := range providers.Registry.List() {
		fmt.Printf("  - %s\n", name)
	}
	fmt.Println("  - placeholder (built in, no configuration required)")
}
