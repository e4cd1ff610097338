package main

import (
	"fmt"
	"os"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage:
  sdnlabel collect [config]     poll the controller and build a labeled dataset
  sdnlabel label -records FILE  relabel saved record trails against an alert log
`)
}

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "collect":
			os.Exit(runCollect(os.Args[2:]))
		case "label":
			os.Exit(runLabel(os.Args[2:]))
		case "-h", "--help", "help":
			usage()
			return
		default:
			// A bare argument is a config path.
			os.Exit(runCollect(os.Args[1:]))
		}
	}
	os.Exit(runCollect(nil))
}
