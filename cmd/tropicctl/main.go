// Command tropicctl is a thin demonstration CLI for the chip driver:
// bring the chip up, run a handshake, and issue a handful of typed
// commands against it. It exists to exercise the library from the
// command line, not as a supported management tool.
package main

import (
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"

	tropic "github.com/tropicsquare/tropic-go"
	"github.com/tropicsquare/tropic-go/port/periphspi"
)

var (
	busName string
	hz      int
	csName  string

	pingFlags   = flag.NewFlagSet("ping", flag.ExitOnError)
	pingPayload = pingFlags.String("data", "00", "hex-encoded payload to echo")

	handshakeFlags = flag.NewFlagSet("handshake", flag.ExitOnError)
	pairingSlot    = handshakeFlags.Int("slot", 0, "pairing key slot (0-3)")
	pairingPrivHex = handshakeFlags.String("pairing-priv", "", "hex-encoded 32-byte pairing private key")
	chipStaticHex  = handshakeFlags.String("chip-static-pub", "", "hex-encoded 32-byte chip static public key")
)

func init() {
	flag.StringVar(&busName, "bus", "", "periph.io SPI bus name, empty for the default")
	flag.IntVar(&hz, "hz", 1_000_000, "SPI clock in Hz")
	flag.StringVar(&csName, "cs", "", "periph.io GPIO pin name for chip-select")
}

func main() {
	if err := run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "tropicctl: %v\n", err)
		os.Exit(2)
	}
}

func run(stdout io.Writer, args []string) error {
	flag.CommandLine.Parse(args)
	rest := flag.Args()
	if len(rest) == 0 {
		return errors.New("missing command (ping, handshake)")
	}
	cmd := rest[0]
	rest = rest[1:]

	cs := gpioreg.ByName(csName)
	if cs == nil {
		return fmt.Errorf("unknown chip-select pin %q", csName)
	}

	p, err := periphspi.Open(busName, physic.Frequency(hz)*physic.Hertz, cs, nil)
	if err != nil {
		return fmt.Errorf("open bus: %w", err)
	}
	defer p.Close()

	ctx := tropic.New(p)
	if _, err := ctx.Init(); err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer ctx.Deinit()

	switch cmd {
	case "ping":
		if err := pingFlags.Parse(rest); err != nil {
			pingFlags.Usage()
			return err
		}
		return doPing(stdout, ctx)
	case "handshake":
		if err := handshakeFlags.Parse(rest); err != nil {
			handshakeFlags.Usage()
			return err
		}
		return doHandshake(stdout, ctx)
	default:
		return fmt.Errorf("unknown command: %q", cmd)
	}
}

func doHandshake(stdout io.Writer, ctx *tropic.Context) error {
	priv, err := hex.DecodeString(*pairingPrivHex)
	if err != nil || len(priv) != 32 {
		return errors.New("handshake: --pairing-priv must be 32 hex-encoded bytes")
	}
	chipStatic, err := hex.DecodeString(*chipStaticHex)
	if err != nil || len(chipStatic) != 32 {
		return errors.New("handshake: --chip-static-pub must be 32 hex-encoded bytes")
	}
	var privArr, pubArr [32]byte
	copy(privArr[:], priv)
	copy(pubArr[:], chipStatic)

	if err := ctx.StartSession(byte(*pairingSlot), privArr, pubArr); err != nil {
		return fmt.Errorf("handshake: %w", err)
	}
	fmt.Fprintln(stdout, "session established")
	return nil
}

func doPing(stdout io.Writer, ctx *tropic.Context) error {
	buf, err := hex.DecodeString(*pingPayload)
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	reply, err := ctx.Ping(buf)
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	fmt.Fprintln(stdout, hex.EncodeToString(reply))
	return nil
}
