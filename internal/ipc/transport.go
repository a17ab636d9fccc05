package ipc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// maxSocketPath is the usable sun_path capacity, keeping one byte for NUL.
var maxSocketPath = len(unix.RawSockaddrUnix{}.Path) - 1

// Connect dials the daemon socket at path. Every failure, including an
// unusable path, is reported as ErrNotAvailable.
func Connect(ctx context.Context, path string) (*net.UnixConn, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty socket path", ErrNotAvailable)
	}
	if len(path) > maxSocketPath {
		return nil, fmt.Errorf("%w: socket path exceeds %d bytes: %s", ErrNotAvailable, maxSocketPath, path)
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, fmt.Errorf("%w: connect %s: %w", ErrNotAvailable, path, err)
	}
	return conn.(*net.UnixConn), nil
}

// Probe reports whether a listener accepts connections on path.
func Probe(ctx context.Context, path string) bool {
	conn, err := Connect(ctx, path)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// SendAll writes all of b, retrying partial and interrupted writes.
func SendAll(w io.Writer, b []byte) error {
	for sent := 0; sent < len(b); {
		n, err := w.Write(b[sent:])
		if n > 0 {
			sent += n
		}
		if err != nil {
			if isTransient(err) {
				continue
			}
			if isPeerGone(err) {
				return fmt.Errorf("%w: %w", ErrConnectionClosed, err)
			}
			return fmt.Errorf("write: %w", err)
		}
		if n == 0 {
			return ErrConnectionClosed
		}
	}
	return nil
}

// RecvAll reads exactly n bytes, retrying partial and interrupted reads.
func RecvAll(r io.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	for got := 0; got < n; {
		m, err := r.Read(buf[got:])
		if m > 0 {
			got += m
		}
		if got == n {
			break
		}
		if err != nil {
			if isTransient(err) {
				continue
			}
			if errors.Is(err, io.EOF) || isPeerGone(err) {
				return nil, fmt.Errorf("%w: read %d of %d bytes", ErrConnectionClosed, got, n)
			}
			return nil, fmt.Errorf("read: %w", err)
		}
		if m == 0 {
			return nil, fmt.Errorf("%w: read %d of %d bytes", ErrConnectionClosed, got, n)
		}
	}
	return buf, nil
}

// WriteMessage sends the header and payload of m.
func WriteMessage(w io.Writer, m Message) error {
	payload, err := Marshal(m)
	if err != nil {
		return err
	}
	header := EncodeHeader(m.Command(), int64(len(payload)))
	if err := SendAll(w, header[:]); err != nil {
		return fmt.Errorf("send %s header: %w", m.Command(), err)
	}
	if err := SendAll(w, payload); err != nil {
		return fmt.Errorf("send %s payload: %w", m.Command(), err)
	}
	return nil
}

// ReadFrame receives one header and its declared payload.
func ReadFrame(r io.Reader) (Header, []byte, error) {
	raw, err := RecvAll(r, HeaderSize)
	if err != nil {
		return Header{}, nil, fmt.Errorf("receive header: %w", err)
	}
	header, err := DecodeHeader([HeaderSize]byte(raw))
	if err != nil {
		return Header{}, nil, err
	}
	if header.Length > MaxPayload {
		return Header{}, nil, fmt.Errorf("%w: payload length %d exceeds %d", ErrMalformedHeader, header.Length, MaxPayload)
	}
	payload, err := RecvAll(r, int(header.Length))
	if err != nil {
		return Header{}, nil, fmt.Errorf("receive %s payload: %w", header.Command, err)
	}
	return header, payload, nil
}

func isTransient(err error) bool {
	return errors.Is(err, syscall.EINTR) || errors.Is(err, syscall.EAGAIN)
}

func isPeerGone(err error) bool {
	return errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET)
}
