package trigger

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"codeberg.org/mutker/camsync/internal/errors"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

const protocolICMP = 1

// ICMPPinger sends a single echo request. It uses an unprivileged datagram
// socket where the kernel allows it and falls back to a raw socket.
type ICMPPinger struct{}

func (ICMPPinger) Ping(ctx context.Context, host string, timeout time.Duration) error {
	errFactory := errors.New()

	ip, err := resolveIPv4(ctx, host)
	if err != nil {
		return errFactory.Wrap(ErrPingFailed, err).WithData(host)
	}

	conn, privileged, err := listenICMP()
	if err != nil {
		return errFactory.Wrap(ErrPingFailed, err).WithData(host)
	}
	defer conn.Close()

	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{
			ID:   os.Getpid() & 0xffff,
			Seq:  1,
			Data: []byte("camsync"),
		},
	}
	payload, err := msg.Marshal(nil)
	if err != nil {
		return errFactory.Wrap(ErrPingFailed, err).WithData(host)
	}

	var dst net.Addr = &net.UDPAddr{IP: ip}
	if privileged {
		dst = &net.IPAddr{IP: ip}
	}

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return errFactory.Wrap(ErrPingFailed, err).WithData(host)
	}

	if _, err := conn.WriteTo(payload, dst); err != nil {
		return errFactory.Wrap(ErrPingFailed, err).WithData(host)
	}

	buf := make([]byte, 1500)
	for {
		n, peer, err := conn.ReadFrom(buf)
		if err != nil {
			return errFactory.Wrap(ErrPingFailed, err).WithData(host)
		}

		reply, err := icmp.ParseMessage(protocolICMP, buf[:n])
		if err != nil {
			continue
		}
		if reply.Type == ipv4.ICMPTypeEchoReply && peerIP(peer).Equal(ip) {
			return nil
		}
	}
}

func listenICMP() (conn *icmp.PacketConn, privileged bool, err error) {
	conn, err = icmp.ListenPacket("udp4", "0.0.0.0")
	if err == nil {
		return conn, false, nil
	}

	conn, err = icmp.ListenPacket("ip4:icmp", "0.0.0.0")
	if err != nil {
		return nil, false, err
	}

	return conn, true, nil
}

func resolveIPv4(ctx context.Context, host string) (net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		if v4 := ip.To4(); v4 != nil {
			return v4, nil
		}
	}

	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, err
	}

	for _, a := range addrs {
		if v4 := a.IP.To4(); v4 != nil {
			return v4, nil
		}
	}

	return nil, fmt.Errorf("no IPv4 address for %s", host)
}

func peerIP(addr net.Addr) net.IP {
	switch a := addr.(type) {
	case *net.UDPAddr:
		return a.IP
	case *net.IPAddr:
		return a.IP
	}

	return nil
}
