// Package cli implements the zipr command line.
package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/jessevdk/go-flags"
	"github.com/rzip/zipr"
)

type ListCommand struct {
	Streamed bool `short:"s" long:"streamed" description:"read local headers sequentially instead of the central directory"`
	Args     struct {
		Files []flags.Filename `positional-arg-name:"file" description:"the .zip files to list" required:"yes"`
	} `positional-args:"yes"`
}

func (c *ListCommand) Execute(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("unknown positional arguments: %s", strings.Join(args, " "))
	}

	for _, file := range c.Args.Files {
		if err := c.list(string(file)); err != nil {
			return fmt.Errorf(`list "%s" error: %w`, file, err)
		}
	}

	return nil
}

func (c *ListCommand) list(name string) error {
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	_, _ = fmt.Fprintf(w, "size\tmethod\tmodified\tname\n")

	if c.Streamed {
		for e, err := range zipr.Stream(f) {
			if err != nil {
				return err
			}
			printEntry(w, e.Entry)
		}
		return nil
	}

	a, err := zipr.Open(f)
	if err != nil {
		return err
	}

	for i := range a.Len() {
		printEntry(w, a.Entry(i))
	}
	if comment := a.Comment(); len(comment) > 0 {
		_, _ = fmt.Fprintf(w, "# %s\n", comment)
	}

	return nil
}

func printEntry(w *tabwriter.Writer, e *zipr.Entry) {
	_, _ = fmt.Fprintf(w, "%s\t%v\t%s\t%s\n",
		humanize.Bytes(e.UncompressedSize), e.Method, e.Modified.Format("2006-01-02 15:04"), e.Name)
}
