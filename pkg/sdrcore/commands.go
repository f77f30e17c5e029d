package sdrcore

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type command func(w *Workspace, c *call) (string, error)

// call is one parsed command line. k is the receiver it targets.
type call struct {
	name string
	args []string
	k    int
}

func (c *call) need(n int) error {
	if len(c.args) < n {
		return reject(-1, "want %d arguments, got %d", n, len(c.args))
	}
	return nil
}

func (c *call) float(i int) (float64, error) {
	if i >= len(c.args) {
		return 0, reject(-1, "missing argument %d", i+1)
	}
	v, err := strconv.ParseFloat(c.args[i], 64)
	if err != nil {
		return 0, reject(-1, "argument %d: %q is not a number", i+1, c.args[i])
	}
	return v, nil
}

func (c *call) int(i int) (int, error) {
	if i >= len(c.args) {
		return 0, reject(-1, "missing argument %d", i+1)
	}
	v, err := strconv.Atoi(c.args[i])
	if err != nil {
		return 0, reject(-1, "argument %d: %q is not an integer", i+1, c.args[i])
	}
	return v, nil
}

func (c *call) flag(i int) (bool, error) {
	v, err := c.int(i)
	return v != 0, err
}

func (c *call) floats(from, n int) ([]float64, error) {
	ret := make([]float64, n)
	for i := range ret {
		v, err := c.float(from + i)
		if err != nil {
			return nil, err
		}
		ret[i] = v
	}
	return ret, nil
}

func (c *call) floatOr(i int, def float64) (float64, error) {
	if i >= len(c.args) {
		return def, nil
	}
	return c.float(i)
}

func (c *call) intOr(i int, def int) (int, error) {
	if i >= len(c.args) {
		return def, nil
	}
	return c.int(i)
}

func (c *call) flagOr(i int, def bool) (bool, error) {
	if i >= len(c.args) {
		return def, nil
	}
	return c.flag(i)
}

// side reads the optional transmit/receive selector at i. ok is false when
// the argument is absent.
func (c *call) side(i int) (trx TRX, ok bool, err error) {
	if i >= len(c.args) {
		return RX, false, nil
	}
	v, err := c.int(i)
	if err != nil {
		return RX, false, err
	}
	if v != int(RX) && v != int(TX) {
		return RX, false, reject(-1, "trx %d", v)
	}
	return TRX(v), true, nil
}

func reply(name, format string, args ...interface{}) string {
	return name + " " + fmt.Sprintf(format, args...)
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Update parses and applies one command line.
//
// A line may start with any of these prefixes: "!" saves the line to the
// replay log once it succeeds, "-" keeps it out of the log output, and "@n"
// aims it at receiver n instead of the listen receiver.
func (w *Workspace) Update(line string) Response {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.update(line, false)
}

func (w *Workspace) update(line string, replaying bool) Response {
	line = strings.TrimSpace(line)
	if line == "" || line[0] == '#' {
		return Response{}
	}

	var (
		save, quiet bool
		target      = w.listen
		prefix      strings.Builder
	)
prefixes:
	for len(line) > 0 {
		switch line[0] {
		case '!':
			save = true
			line = line[1:]
		case '-':
			quiet = true
			prefix.WriteByte('-')
			line = line[1:]
		case '@':
			j := 1
			for j < len(line) && line[j] >= '0' && line[j] <= '9' {
				j++
			}
			k, err := strconv.Atoi(line[1:j])
			if err != nil || k < 0 || k >= MaxRX {
				w.logger.Warn().Str("line", line).Msg("update: bad receiver redirect")
				return Response{Status: -1, Text: fmt.Sprintf("bad receiver %q", line[:j])}
			}
			target = k
			prefix.WriteString(line[:j])
			line = line[j:]
		default:
			break prefixes
		}
		line = strings.TrimLeft(line, " \t")
	}

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Response{Status: -1, Text: "empty command"}
	}
	name := fields[0]

	var (
		text string
		err  error
	)
	if cmd, ok := w.commands[name]; ok {
		text, err = cmd(w, &call{name: name, args: fields[1:], k: target})
	} else {
		err = &CommandError{Code: -1, Err: ErrUnknownCommand}
	}

	status := 0
	if err != nil {
		var ce *CommandError
		if !errors.As(err, &ce) {
			ce = &CommandError{Code: -1, Err: err}
			err = ce
		}
		ce.Command = name
		status = ce.Code
		text = err.Error()
	}

	if !quiet {
		ev := w.logger.Debug()
		if status != 0 {
			ev = w.logger.Warn().Err(err)
		}
		ev.Str("line", line).Int("rx", target).Msgf("update: returned %d from %s", status, name)
	}

	if save && status == 0 && !replaying && name != "setNewBuflen" {
		rec := line
		if prefix.Len() > 0 {
			rec = prefix.String() + " " + line
		}
		w.replay = append(w.replay, rec)
		if w.replayFile != nil {
			if _, werr := fmt.Fprintln(w.replayFile, rec); werr != nil {
				w.logger.Error().Err(werr).Msg("writing replay log")
			}
		}
	}
	return Response{Status: status, Text: text}
}

// Commands lists the registered command names.
func (w *Workspace) Commands() []string {
	ret := make([]string, 0, len(w.commands))
	for name := range w.commands {
		ret = append(ret, name)
	}
	return ret
}
