package main

import (
	"bufio"
	"io"
	"os"
)

// writeOutput calls write with stdout, or with the named file if
// filename is not empty.
func writeOutput(filename string, stdout io.Writer, write func(io.Writer) error) (err error) {
	if filename == "" {
		return write(stdout)
	}

	out, err := os.Create(filename)
	if err != nil {
		return
	}
	defer func() {
		closeErr := out.Close()
		if err == nil {
			err = closeErr
		}
	}()

	w := bufio.NewWriter(out)
	if err = write(w); err != nil {
		return
	}
	return w.Flush()
}
