// Package uartserial implements port.Port over a plain UART, for boards
// that expose the chip through a serial adapter rather than a native
// SPI bus. The wire shape L1 clocks out is bus-agnostic; this port just
// swaps the transport underneath it.
package uartserial

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/tarm/serial"
)

// Port drives the chip over a UART, writing the request frame and
// reading back exactly len(rx) bytes.
type Port struct {
	port *serial.Port
}

// Open the named serial device (e.g. "/dev/ttyUSB0") at baud.
func Open(name string, baud int) (*Port, error) {
	p, err := serial.OpenPort(&serial.Config{Name: name, Baud: baud, ReadTimeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("uartserial: %w", err)
	}
	return &Port{port: p}, nil
}

func (p *Port) Close() error {
	return p.port.Close()
}

// Transfer writes tx then reads len(rx) bytes, ignoring timeout beyond
// what the underlying serial.Config's ReadTimeout already bounds: a
// UART has no notion of a per-call deadline the way periph.io's SPI
// binding does.
func (p *Port) Transfer(tx, rx []byte, timeout time.Duration) error {
	if len(tx) > 0 {
		if _, err := p.port.Write(tx); err != nil {
			return fmt.Errorf("uartserial: write: %w", err)
		}
	}
	if len(rx) == 0 {
		return nil
	}
	read := 0
	for read < len(rx) {
		n, err := p.port.Read(rx[read:])
		if err != nil {
			return fmt.Errorf("uartserial: read: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("uartserial: read: no data before timeout")
		}
		read += n
	}
	return nil
}

func (p *Port) Random(buf []byte) error {
	_, err := rand.Read(buf)
	return err
}

func (p *Port) Delay(d time.Duration) {
	time.Sleep(d)
}
