package canbus

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"

	"go.einride.tech/can"
	"go.einride.tech/can/pkg/socketcan"
)

// FrameWriter transmits raw CAN frames.
type FrameWriter interface {
	WriteFrame(ctx context.Context, frame can.Frame) error
	Close() error
}

// SocketCANWriter transmits over a SocketCAN interface.
type SocketCANWriter struct {
	iface string
	conn  net.Conn
	tx    *socketcan.Transmitter
}

// NewSocketCANWriter dials the named interface (e.g. "can0", "vcan0").
func NewSocketCANWriter(ctx context.Context, iface string) (*SocketCANWriter, error) {
	conn, err := socketcan.DialContext(ctx, "can", iface)
	if err != nil {
		return nil, fmt.Errorf("dial can interface %s: %w", iface, err)
	}
	return &SocketCANWriter{iface: iface, conn: conn, tx: socketcan.NewTransmitter(conn)}, nil
}

func (w *SocketCANWriter) WriteFrame(ctx context.Context, frame can.Frame) error {
	if err := w.tx.TransmitFrame(ctx, frame); err != nil {
		return fmt.Errorf("transmit 0x%X on %s: %w", frame.ID, w.iface, err)
	}
	return nil
}

func (w *SocketCANWriter) Close() error {
	if w.conn != nil {
		return w.conn.Close()
	}
	return nil
}

// StdoutWriter prints frames instead of transmitting them, for running
// without CAN hardware. The output line is the candump text format.
type StdoutWriter struct {
	out io.Writer
}

func NewStdoutWriter() *StdoutWriter {
	return &StdoutWriter{out: os.Stdout}
}

func (w *StdoutWriter) WriteFrame(_ context.Context, frame can.Frame) error {
	_, err := fmt.Fprintf(w.out, "(%03X) %X\n", frame.ID, frame.Data[:frame.Length])
	return err
}

func (w *StdoutWriter) Close() error { return nil }
