package observability

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// Console prints the human-readable progress lines of a run.
type Console struct {
	out     io.Writer
	success func(a ...interface{}) string
	warning func(a ...interface{}) string
	failure func(a ...interface{}) string
	info    func(a ...interface{}) string
}

func NewConsole(out io.Writer) *Console {
	if out == nil {
		out = os.Stdout
	}
	return &Console{
		out:     out,
		success: color.New(color.FgGreen).SprintFunc(),
		warning: color.New(color.FgYellow).SprintFunc(),
		failure: color.New(color.FgRed).SprintFunc(),
		info:    color.New(color.FgCyan).SprintFunc(),
	}
}

func (c *Console) Step(format string, args ...interface{}) {
	c.line(c.info("→"), format, args...)
}

func (c *Console) Success(format string, args ...interface{}) {
	c.line(c.success("✓"), format, args...)
}

func (c *Console) Warn(format string, args ...interface{}) {
	c.line(c.warning("⚠"), format, args...)
}

func (c *Console) Fail(format string, args ...interface{}) {
	c.line(c.failure("✗"), format, args...)
}

func (c *Console) line(icon, format string, args ...interface{}) {
	_, _ = fmt.Fprintf(c.out, "%s %s\n", icon, fmt.Sprintf(format, args...))
}
