//go:build linux || darwin
// +build linux darwin

package canbus

import (
	"context"
	"fmt"
	"net"

	"go.einride.tech/can"
	"go.einride.tech/can/pkg/socketcan"
)

// Writer transmits raw frames.
type Writer interface {
	WriteFrame(ctx context.Context, frame can.Frame) error
	Close() error
}

// Reader receives raw frames.
type Reader interface {
	ReadFrame(ctx context.Context) (can.Frame, error)
	Close() error
}

type socketWriter struct {
	conn net.Conn
	tx   *socketcan.Transmitter
}

// NewWriter opens a SocketCAN transmit connection on iface ("can0",
// "vcan0", ...).
func NewWriter(ctx context.Context, iface string) (Writer, error) {
	conn, err := socketcan.DialContext(ctx, "can", iface)
	if err != nil {
		return nil, fmt.Errorf("socketcan dial %s: %w", iface, err)
	}
	return &socketWriter{conn: conn, tx: socketcan.NewTransmitter(conn)}, nil
}

func (w *socketWriter) WriteFrame(ctx context.Context, frame can.Frame) error {
	return w.tx.TransmitFrame(ctx, frame)
}

func (w *socketWriter) Close() error {
	if w.conn != nil {
		return w.conn.Close()
	}
	return nil
}

type socketReader struct {
	conn net.Conn
	recv *socketcan.Receiver
}

// NewReader opens a SocketCAN receive connection on iface.
func NewReader(ctx context.Context, iface string) (Reader, error) {
	conn, err := socketcan.DialContext(ctx, "can", iface)
	if err != nil {
		return nil, fmt.Errorf("socketcan dial %s: %w", iface, err)
	}
	return &socketReader{conn: conn, recv: socketcan.NewReceiver(conn)}, nil
}

// ReadFrame blocks until a frame arrives or the context is cancelled.
// The underlying receiver has no deadline support, so the blocking read
// runs in a goroutine and the socket is abandoned on cancellation.
func (r *socketReader) ReadFrame(ctx context.Context) (can.Frame, error) {
	frameCh := make(chan can.Frame, 1)
	errCh := make(chan error, 1)

	go func() {
		if r.recv.Receive() {
			frameCh <- r.recv.Frame()
		} else {
			errCh <- fmt.Errorf("socketcan receive failed")
		}
	}()

	select {
	case <-ctx.Done():
		return can.Frame{}, ctx.Err()
	case f := <-frameCh:
		return f, nil
	case err := <-errCh:
		return can.Frame{}, err
	}
}

func (r *socketReader) Close() error {
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
