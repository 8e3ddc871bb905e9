package cli

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/rzip/zipr"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/time/rate"
)

type ExtractCommand struct {
	Dir  flags.Filename `short:"d" long:"dir" description:"parent directory to extract into" default:"."`
	Args struct {
		Files []flags.Filename `positional-arg-name:"file" description:"the .zip files to be extracted" required:"yes"`
	} `positional-args:"yes"`
}

func (c *ExtractCommand) Execute(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("unknown positional arguments: %s", strings.Join(args, " "))
	}

	n := len(c.Args.Files)
	for i, file := range c.Args.Files {
		output, err := c.extract(string(file))
		if err != nil {
			log.Printf(`%d/%d: extract "%s" error: %v`, i+1, n, file, err)
			return err
		}

		log.Printf(`%d/%d: successfully extracted "%s" to "%s"`, i+1, n, file, output)
	}

	return nil
}

// extract extracts the content of the named ZIP file and returns the newly
// created output directory.
func (c *ExtractCommand) extract(name string) (string, error) {
	f, err := os.Open(name)
	if err != nil {
		return "", err
	}
	defer f.Close()

	a, err := zipr.Open(f)
	if err != nil {
		return "", err
	}

	output, err := c.createOutputDir(name)
	if err != nil {
		return "", err
	}

	// tally the uncompressed size up front for an accurate progress bar.
	var total int64
	for i := range a.Len() {
		if e := a.Entry(i); e.IsFile() {
			total += int64(e.UncompressedSize)
		}
	}
	bar := progressbar.DefaultBytes(total, fmt.Sprintf(`extracting "%s"`, filepath.Base(name)))
	defer bar.Close()

	sometimes := rate.Sometimes{Interval: 5 * time.Second}
	buf := make([]byte, 32*1024)

	for i := range a.Len() {
		e := a.Entry(i)

		path := e.SanitizedName()
		if path == "" {
			continue
		}
		path = filepath.Join(output, filepath.FromSlash(path))

		if e.IsDir() {
			if err = os.MkdirAll(path, 0755); err != nil {
				return "", fmt.Errorf(`create directory "%s" error: %w`, path, err)
			}
			continue
		}

		if err = c.copy(a, i, path, buf, bar); err != nil {
			return "", fmt.Errorf(`extract "%s" error: %w`, e.Name, err)
		}

		sometimes.Do(func() {
			log.Printf(`[%d/%d] done extracting "%s"`, i+1, a.Len(), e.Name)
		})
	}

	return output, nil
}

// createOutputDir creates a new directory under the parent directory, named
// after the archive; "-1", "-2", etc. are appended on conflict.
func (c *ExtractCommand) createOutputDir(name string) (string, error) {
	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	output := filepath.Join(string(c.Dir), stem)

	for i := 0; ; {
		switch err := os.Mkdir(output, 0755); {
		case err == nil:
			return output, nil
		case errors.Is(err, os.ErrExist):
			i++
			output = filepath.Join(string(c.Dir), stem+"-"+strconv.Itoa(i))
		default:
			return "", err
		}
	}
}

func (c *ExtractCommand) copy(a *zipr.Archive, i int, path string, buf []byte, bar *progressbar.ProgressBar) error {
	src, err := a.ByIndex(i)
	if err != nil {
		return err
	}
	defer src.Close()

	if err = os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	perm := os.FileMode(0644)
	if mode, ok := src.UnixMode(); ok {
		perm = os.FileMode(mode).Perm()
	}

	w, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}

	_, err = io.CopyBuffer(io.MultiWriter(w, bar), src, buf)
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return err
	}

	return os.Chtimes(path, time.Time{}, src.Modified)
}
