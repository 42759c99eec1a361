package cmd

import (
	"fmt"
	"os"
	"runtime"
)

// Version is injected at build time via ldflags.
var Version = "development"

// runVersion prints version and environment information.
func runVersion() {
	fmt.Printf("medichat %s (%s, %s/%s)\n", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)

	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		fmt.Println("GEMINI_API_KEY: configured")
	} else {
		fmt.Println("GEMINI_API_KEY: not set")
	}
	if os.Getenv("DATABASE_URL") != "" {
		fmt.Println("DATABASE_URL: configured")
	} else {
		fmt.Println("DATABASE_URL: not set")
	}
}
