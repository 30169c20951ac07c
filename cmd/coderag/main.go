package main

import (
	"context"
	"fmt"
	"os"

	"github.com/hyunolike/learnathon-1st-team1/internal/cli"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	if err := cli.Execute(context.Background(), cli.BuildInfo{Version: version, BuildTime: buildTime}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
