// Package periphspi implements port.Port on top of periph.io's SPI and
// GPIO host bindings, for boards such as the Raspberry Pi where the chip
// is wired to a native SPI bus with a dedicated chip-select and an
// optional ready/interrupt pin.
package periphspi

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// Port drives the chip over a periph.io SPI connection, asserting an
// explicit chip-select pin around each transfer (mode-0, MSB-first, as
// required by the chip's documented wire shape).
type Port struct {
	bus   spi.PortCloser
	conn  spi.Conn
	cs    gpio.PinOut
	ready gpio.PinIn
}

// Open the named SPI bus (empty string selects the first available
// port) at the given clock speed, using cs as the chip-select pin and,
// if non-nil, ready as the chip's ready/interrupt pin.
func Open(busName string, hz physic.Frequency, cs gpio.PinOut, ready gpio.PinIn) (*Port, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periphspi: %w", err)
	}
	b, err := spireg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("periphspi: %w", err)
	}
	c, err := b.Connect(hz, spi.Mode0, 8)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("periphspi: %w", err)
	}
	if err := cs.Out(gpio.High); err != nil {
		b.Close()
		return nil, fmt.Errorf("periphspi: cs pin: %w", err)
	}
	p := &Port{bus: b, conn: c, cs: cs, ready: ready}
	if ready != nil {
		if err := ready.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
			b.Close()
			return nil, fmt.Errorf("periphspi: ready pin: %w", err)
		}
	}
	return p, nil
}

func (p *Port) Close() error {
	return p.bus.Close()
}

// Transfer asserts CS, clocks the full frame both ways, and releases
// CS. periph.io's SPI transactions do not carry a per-call deadline, so
// timeout only bounds the surrounding Go call via a watchdog goroutine;
// a hung bus still returns control to the caller.
func (p *Port) Transfer(tx, rx []byte, timeout time.Duration) error {
	if lim, ok := p.conn.(conn.Limits); ok {
		if max := lim.MaxTxSize(); max > 0 && len(tx) > max {
			return fmt.Errorf("periphspi: frame too large for bus: %d > %d", len(tx), max)
		}
	}
	p.cs.Out(gpio.Low)
	defer p.cs.Out(gpio.High)

	done := make(chan error, 1)
	go func() { done <- p.conn.Tx(tx, rx) }()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("periphspi: %w", err)
		}
		return nil
	case <-time.After(timeout):
		return errors.New("periphspi: spi transfer timed out")
	}
}

// Random fills buf from the host's crypto/rand source.
func (p *Port) Random(buf []byte) error {
	if _, err := rand.Read(buf); err != nil {
		return fmt.Errorf("periphspi: rng: %w", err)
	}
	return nil
}

func (p *Port) Delay(d time.Duration) {
	time.Sleep(d)
}

// WaitReady polls the ready pin until it reads high or timeout elapses.
// Without a ready pin it returns nil at once, leaving readiness to the
// transport's status-byte polling.
func (p *Port) WaitReady(timeout time.Duration) error {
	if p.ready == nil {
		return nil
	}
	deadline := time.Now().Add(timeout)
	for p.ready.Read() != gpio.High {
		if time.Now().After(deadline) {
			return errors.New("periphspi: ready pin timeout")
		}
		time.Sleep(time.Millisecond)
	}
	return nil
}
