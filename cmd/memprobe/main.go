package main

import (
	"os"

	"github.com/clusterprobe/memprobe/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
