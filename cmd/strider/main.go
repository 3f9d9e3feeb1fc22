package main

import (
	"flag"
	"fmt"
	"os"

	"strider/internal/cli"
)

func main() {
	// Root flags (apply to every subcommand)
	server := flag.String("server", defaultServer(), "walker backend base URL")
	flag.Parse()

	// Hand the remaining args to the CLI runner.
	args := flag.Args()
	if len(args) == 0 {
		cli.PrintHelp()
		os.Exit(2)
	}

	code := cli.Run(args, cli.Options{
		Server: *server,
	})
	if code != 0 {
		fmt.Fprintln(os.Stderr)
	}
	os.Exit(code)
}

func defaultServer() string {
	if s := os.Getenv("STRIDER_SERVER"); s != "" {
		return s
	}
	return "http://127.0.0.1:8000"
}
