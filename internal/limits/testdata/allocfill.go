// allocfill.go allocates N bytes and writes into every eight-byte slot
// so the pages are really committed (used to test memory limit
// enforcement).
// Usage: allocfill <bytes> [seconds]
package main

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: allocfill <bytes> [seconds]\n")
		os.Exit(1)
	}

	size, err := strconv.ParseInt(os.Args[1], 10, 64)
	if err != nil || size < 0 {
		fmt.Fprintf(os.Stderr, "invalid bytes: %s\n", os.Args[1])
		os.Exit(1)
	}

	// Give the parent a moment to land its ceilings on this process
	// before allocating.
	time.Sleep(200 * time.Millisecond)

	data := make([]byte, size)
	for i := 0; i+8 <= len(data); i += 8 {
		data[i] = 1
	}

	fmt.Fprintf(os.Stdout, "filled %d slots\n", size/8)

	if len(os.Args) > 2 {
		seconds, err := strconv.Atoi(os.Args[2])
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid seconds: %s\n", os.Args[2])
			os.Exit(1)
		}
		time.Sleep(time.Duration(seconds) * time.Second)
	}

	_ = data
}
