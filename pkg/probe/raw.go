package probe

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

// RawOptions configures a RawProber.
type RawOptions struct {
	// SourceA and SourceB are the local listen addresses for the
	// respective network's interface. Empty means the unspecified
	// address for the address family.
	SourceA string
	SourceB string
}

// RawProber probes addresses with hand-built ICMP echo requests over a
// raw socket. Requires root/CAP_NET_RAW; socket errors surface as
// Indeterminate verdicts rather than failing the sweep.
type RawProber struct {
	options RawOptions
	seq     uint32
}

// NewRawProber creates a raw-socket based Prober.
func NewRawProber(options RawOptions) *RawProber {
	return &RawProber{options: options}
}

// Probe sends one echo request to ip and waits up to timeout for the
// matching reply.
func (p *RawProber) Probe(ctx context.Context, ip net.IP, network Network, timeout time.Duration) Verdict {
	isIPv6 := ip.To4() == nil

	conn, err := p.listen(network, isIPv6)
	if err != nil {
		// Typically permission denied or interface down
		return Verdict{IP: ip, Outcome: Indeterminate, Reason: fmt.Sprintf("failed to open ICMP socket: %s", err)}
	}
	defer func() {
		_ = conn.Close()
	}()

	seq := int(atomic.AddUint32(&p.seq, 1) & 0xffff)
	start := time.Now()

	if err := sendEcho(conn, ip, seq, isIPv6); err != nil {
		return Verdict{IP: ip, Outcome: Indeterminate, Reason: fmt.Sprintf("failed to send echo request: %s", err)}
	}

	return p.awaitReply(ctx, conn, ip, seq, isIPv6, start, timeout)
}

func (p *RawProber) listen(network Network, isIPv6 bool) (net.PacketConn, error) {
	source := p.options.SourceA
	if network == NetworkB {
		source = p.options.SourceB
	}
	if isIPv6 {
		if source == "" {
			source = "::"
		}
		return icmp.ListenPacket("ip6:ipv6-icmp", source)
	}
	if source == "" {
		source = "0.0.0.0"
	}
	return icmp.ListenPacket("ip4:icmp", source)
}

// sendEcho sends a single ICMP echo request through the connection
func sendEcho(conn net.PacketConn, ip net.IP, seq int, isIPv6 bool) error {
	var msgType icmp.Type

	if isIPv6 {
		msgType = ipv6.ICMPTypeEchoRequest
	} else {
		msgType = ipv4.ICMPTypeEcho
	}

	msg := &icmp.Message{
		Type: msgType,
		Code: 0,
		Body: &icmp.Echo{
			ID:   os.Getpid() & 0xffff,
			Seq:  seq,
			Data: []byte("HELLO-R-U-THERE"),
		},
	}

	msgBytes, err := msg.Marshal(nil)
	if err != nil {
		return fmt.Errorf("failed to marshal ICMP message: %w", err)
	}

	dst := &net.IPAddr{IP: ip}
	_, err = conn.WriteTo(msgBytes, dst)
	return err
}

// awaitReply reads replies until the matching echo reply arrives or the
// timeout expires. Foreign replies (other IDs, other sequence numbers,
// other peers) are skipped.
func (p *RawProber) awaitReply(ctx context.Context, conn net.PacketConn, ip net.IP, seq int, isIPv6 bool, start time.Time, timeout time.Duration) Verdict {
	var echoReplyType icmp.Type
	var protocol int

	if isIPv6 {
		echoReplyType = ipv6.ICMPTypeEchoReply
		protocol = ipv6.ICMPTypeEchoReply.Protocol()
	} else {
		echoReplyType = ipv4.ICMPTypeEchoReply
		protocol = ipv4.ICMPTypeEchoReply.Protocol()
	}

	expectedID := os.Getpid() & 0xffff
	deadline := start.Add(timeout)

	for {
		select {
		case <-ctx.Done():
			return Verdict{IP: ip, Outcome: Unreachable}
		default:
		}

		if time.Now().After(deadline) {
			return Verdict{IP: ip, Outcome: Unreachable}
		}

		// Short read deadline so ctx and the probe timeout are checked
		// regularly
		readDeadline := time.Now().Add(500 * time.Millisecond)
		if readDeadline.After(deadline) {
			readDeadline = deadline
		}
		if err := conn.SetReadDeadline(readDeadline); err != nil {
			return Verdict{IP: ip, Outcome: Indeterminate, Reason: fmt.Sprintf("failed to set read deadline: %s", err)}
		}

		reply := make([]byte, 1500)
		n, peer, err := conn.ReadFrom(reply)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			return Verdict{IP: ip, Outcome: Indeterminate, Reason: fmt.Sprintf("failed to read reply: %s", err)}
		}

		rm, err := icmp.ParseMessage(protocol, reply[:n])
		if err != nil {
			continue
		}
		if rm.Type != echoReplyType {
			continue
		}

		echo, ok := rm.Body.(*icmp.Echo)
		if !ok {
			continue
		}
		if echo.ID != expectedID || echo.Seq != seq {
			continue
		}
		if peerAddr, ok := peer.(*net.IPAddr); !ok || !peerAddr.IP.Equal(ip) {
			continue
		}

		return Verdict{IP: ip, Outcome: Reachable, RTT: time.Since(start)}
	}
}
