// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/netip"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bassosimone/runtimex"
	"github.com/mucaho/jnetemu"
	"github.com/mucaho/jnetemu/impair"
)

var (
	// args contains the command line arguments (overridable in tests).
	args = os.Args

	// output is the writer for status output (overridable in tests).
	output io.Writer = os.Stdout
)

// run parses args[1:], starts an emulator wired from the parsed flags, and
// blocks until ctx is done before stopping it cleanly. Split out of main
// so tests can drive it with a context that is cancelled on a timer
// instead of a real OS signal.
func run(ctx context.Context) error {
	// 1. create command line parser
	fset := flag.NewFlagSet("jnetemu", flag.ExitOnError)

	// 2. add flags to parse
	var (
		listenAddr  = fset.String("listen", "127.0.0.1:9000", "Local address to bind the emulator on.")
		peerA       = fset.String("peer-a", "127.0.0.1:9001", "First peer address.")
		peerB       = fset.String("peer-b", "127.0.0.1:9002", "Second peer address.")
		loss        = fset.Float64("loss", impair.DefaultLoss, "Packet loss fraction.")
		duplication = fset.Float64("duplication", impair.DefaultDuplication, "Packet duplication fraction.")
		delay       = fset.Duration("delay", impair.DefaultDelayMS*time.Millisecond, "Base one-way delay.")
		jitter      = fset.Duration("jitter", impair.DefaultJitterMS*time.Millisecond, "Delay jitter.")
		pcapFile    = fset.String("pcap-file", "", "Write relayed datagrams to a PCAP file.")
		pcapSnaplen = fset.Int("pcap-snaplen", jnetemu.SnapLenEthernet, "PCAP snapshot length in bytes.")
	)

	// 3. parse command line
	runtimex.PanicOnError0(fset.Parse(args[1:]))

	// 4. build the reference impairment policy from the flags
	policy := impair.NewSimple()
	policy.SetLoss(*loss)
	policy.SetDuplication(*duplication)
	policy.SetDelay(*delay)
	policy.SetJitter(*jitter)

	// 5. build the emulator options
	opts := []jnetemu.Option{jnetemu.WithPolicy(policy)}
	if *pcapFile != "" {
		filep := runtimex.PanicOnError1(os.Create(*pcapFile))
		opts = append(opts, jnetemu.WithPacketTrace(jnetemu.NewPacketTrace(filep, uint16(*pcapSnaplen))))
	}

	// 6. construct and start the emulator
	emu := jnetemu.New(
		netip.MustParseAddrPort(*listenAddr),
		netip.MustParseAddrPort(*peerA),
		netip.MustParseAddrPort(*peerB),
		opts...,
	)
	if err := emu.Start(); err != nil {
		return err
	}
	fmt.Fprintf(output, "jnetemu: relaying %s <-> %s via %s\n", *peerA, *peerB, *listenAddr)

	// 7. block until the context is done, then stop cleanly
	<-ctx.Done()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	return emu.Stop(stopCtx)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	runtimex.PanicOnError0(run(ctx))
}
