package main

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Command runs a process, logging everything it prints and keeping a copy of
// the combined output for error reports
type Command struct {
	cmd    *exec.Cmd
	name   string
	logger *logrus.Entry
	stdin  io.WriteCloser

	outputMux sync.Mutex
	output    bytes.Buffer
}

func CommandContextLogger(ctx context.Context, logger *logrus.Entry, name string, arg ...string) *Command {
	cmd := exec.CommandContext(ctx, name, arg...)

	command := &Command{cmd: cmd, name: name + " " + strings.Join(arg, " "), logger: logger}
	cmd.Stdout = command
	cmd.Stderr = command

	return command
}

func (c *Command) Write(p []byte) (n int, err error) {
	c.logger.WithField("cmdName", c.name).Debug(string(p))

	c.outputMux.Lock()
	defer c.outputMux.Unlock()
	return c.output.Write(p)
}

func (c *Command) GetStdin() (io.WriteCloser, error) {
	if c.stdin == nil {
		stdin, err := c.cmd.StdinPipe()
		if err != nil {
			return nil, err
		}
		c.stdin = stdin
	}
	return c.stdin, nil
}

func (c *Command) Start() error {
	return c.cmd.Start()
}

func (c *Command) Wait() error {
	return c.cmd.Wait()
}

func (c *Command) CombinedOutput() (string, error) {
	err := c.cmd.Run()
	return c.GetOutput(), err
}

func (c *Command) GetOutput() string {
	c.outputMux.Lock()
	defer c.outputMux.Unlock()
	return c.output.String()
}
