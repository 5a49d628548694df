package console

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tarm/serial"
)

// Commands are queued here and drained by the control loop between
// ticks, so a command never observes half-updated state. The queue is
// deliberately small: a human on a terminal, not a machine feed.
const queueDepth = 8

// Console reads newline-terminated commands from the text console and
// carries diagnostic/echo output back the other way.
type Console struct {
	rw       io.ReadWriter
	closer   io.Closer
	log      *logrus.Logger
	commands chan Command
}

// Open connects the console to a serial port.
func Open(portName string, baud int, log *logrus.Logger) (*Console, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name:        portName,
		Baud:        baud,
		ReadTimeout: time.Second * 5,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open console port %s: %v", portName, err)
	}
	c := New(port, log)
	c.closer = port
	return c, nil
}

// New wraps an already-open stream, used from tests and when the
// console runs over stdio.
func New(rw io.ReadWriter, log *logrus.Logger) *Console {
	return &Console{
		rw:       rw,
		log:      log,
		commands: make(chan Command, queueDepth),
	}
}

// Commands is the queue the control loop drains once per tick.
func (c *Console) Commands() <-chan Command {
	return c.commands
}

// Printf writes a line back to the console terminal.
func (c *Console) Printf(format string, args ...interface{}) {
	fmt.Fprintf(c.rw, format+"\r\n", args...)
}

// Run reads command lines until the port closes. Bad input is answered
// with a diagnostic and changes nothing; a full queue drops the command
// rather than ever blocking the reader.
//
// An expired serial read timeout surfaces as a zero-byte io.EOF, so EOF
// only means the console is idle. The reader stops on any other error,
// which is what a closed port returns.
func (c *Console) Run() {
	buf := make([]byte, 64)
	var line []byte
	for {
		n, err := c.rw.Read(buf)
		for _, b := range buf[:n] {
			if b != '\n' {
				line = append(line, b)
				continue
			}
			c.handleLine(strings.TrimRight(string(line), "\r"))
			line = line[:0]
		}
		if err == io.EOF {
			continue
		}
		if err != nil {
			c.log.Infof("console closed: %v", err)
			break
		}
	}
	close(c.commands)
}

func (c *Console) handleLine(line string) {
	if line == "" {
		return
	}
	cmd, err := ParseCommand(line)
	if err != nil {
		c.Printf("error: %v", err)
		return
	}
	select {
	case c.commands <- cmd:
	default:
		c.Printf("error: command queue full, try again")
	}
}

func (c *Console) Close() error {
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}
