// idle.go sleeps for N seconds (used to inspect a live child while
// limits are applied to it).
// Usage: idle <seconds>
package main

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: idle <seconds>\n")
		os.Exit(1)
	}

	seconds, err := strconv.Atoi(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid seconds: %s\n", os.Args[1])
		os.Exit(1)
	}

	time.Sleep(time.Duration(seconds) * time.Second)
}
