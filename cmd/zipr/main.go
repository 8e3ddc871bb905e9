package main

import (
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/rzip/zipr/internal/cli"
)

var opts struct {
	List    cli.ListCommand    `command:"list" alias:"ls" description:"list the entries of ZIP archives"`
	Extract cli.ExtractCommand `command:"extract" alias:"x" description:"extract ZIP archives to a directory"`
}

func main() {
	p := flags.NewParser(&opts, flags.Default)

	if _, err := p.Parse(); err != nil && !flags.WroteHelp(err) {
		os.Exit(1)
	}
}
