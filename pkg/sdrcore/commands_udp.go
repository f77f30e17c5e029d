package sdrcore

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/rs/zerolog"
)

// Updater applies command lines.
type Updater interface {
	Update(line string) Response
}

const maxCommandDatagram = 4096

// FormatReply renders a response for a command listener.
func FormatReply(resp Response) string {
	switch {
	case resp.Status != 0:
		return "error"
	case resp.Text == "":
		return "ok"
	default:
		return "ok " + resp.Text
	}
}

// ServeCommands treats each datagram on conn as one command line and answers
// the sender. It closes conn when ctx is done.
func ServeCommands(ctx context.Context, conn net.PacketConn, u Updater, logger zerolog.Logger) error {
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	buf := make([]byte, maxCommandDatagram)
	for {
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("reading command: %w", err)
		}
		resp := u.Update(string(buf[:n]))
		if _, err := conn.WriteTo([]byte(FormatReply(resp)), addr); err != nil {
			logger.Warn().Err(err).Str("addr", addr.String()).Msg("replying to command")
		}
	}
}

// LoadCommands applies one command per line. Failed lines are logged and
// skipped.
func LoadCommands(u Updater, r io.Reader, logger zerolog.Logger) error {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		resp := u.Update(scanner.Text())
		if resp.Status != 0 {
			logger.Warn().Int("line", lineNo).Int("status", resp.Status).Str("text", resp.Text).Msg("startup command failed")
		}
	}
	return scanner.Err()
}

func LoadCommandsFile(u Updater, path string, logger zerolog.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening commands file: %w", err)
	}
	defer f.Close()
	return LoadCommands(u, f, logger)
}
