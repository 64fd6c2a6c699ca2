package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		usage(args, stderr)
		return 1
	}

	switch args[1] {
	case "token":
		if len(args) >= 3 {
			switch args[2] {
			case "mint":
				return runTokenMint(args[3:], stdout, stderr)
			case "decode":
				return runTokenDecode(args[3:], stdout, stderr)
			}
		}
	case "health":
		return runHealth(args[2:], stdout, stderr)
	}

	usage(args, stderr)
	return 1
}

func usage(args []string, stderr io.Writer) {
	name := "notificationsctl"
	if len(args) > 0 && args[0] != "" {
		name = filepath.Base(args[0])
	}
	fmt.Fprintf(stderr, "usage:\n")
	fmt.Fprintf(stderr, "  %s token mint\n", name)
	fmt.Fprintf(stderr, "  %s token decode [--token <jwt>]   (reads stdin when --token is empty)\n", name)
	fmt.Fprintf(stderr, "  %s health [--url <base url>] [--detailed] [--timeout <duration>]\n", name)
}
