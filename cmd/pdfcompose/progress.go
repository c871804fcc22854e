package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/lvillar/pdfcompose/progress"
)

var (
	percentColor = color.New(color.FgCyan)
	doneColor    = color.New(color.FgGreen, color.Bold)
	failColor    = color.New(color.FgRed, color.Bold)
)

// progress prints one line per event on the error writer. Errors are left
// to main, which prints the same message once.
func (st *state) progress(c *cli.Context) progress.Func {
	if st.quiet {
		return nil
	}
	w := c.App.ErrWriter
	return func(e progress.Event) {
		switch e.Status {
		case progress.Complete:
			fmt.Fprintf(w, "%s %s\n", doneColor.Sprint("[done]"), e.Message)
		case progress.Error:
			fmt.Fprintf(w, "%s\n", failColor.Sprint("[fail]"))
		default:
			fmt.Fprintf(w, "%s %s\n", percentColor.Sprintf("[%3d%%]", e.Progress), e.Message)
		}
	}
}
