package main

import (
	"fmt"
	"os"
)

func main() {
	cli := parseArgs(os.Args[1:])

	switch cli.mode {
	case infoMode:
		checkf(runInfo(cli), "info failed")
	case versionMode:
		fmt.Println("hollytool", version)
	default:
		checkf(runDemo(cli), "demo failed")
	}
}

const version = "0.1.0"

func checkf(err error, format string, args ...any) {
	if err == nil {
		return
	}

	fmt.Fprintf(os.Stderr, "fatal error:")
	fmt.Fprintf(os.Stderr, "\n\t%s: %s\n", fmt.Sprintf(format, args...), err)
	os.Exit(1)
}
