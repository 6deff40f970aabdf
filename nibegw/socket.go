package nibegw

import (
	"context"
	"fmt"
	"net"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/yozik04/nibe"
)

// listenPacket binds a UDP socket on addr, optionally setting
// SO_REUSEPORT before bind (so a second process can share the port) and
// joining a multicast group afterwards, per §6's "Multicast group joins
// use IP_ADD_MEMBERSHIP (v4) or IPV6_JOIN_GROUP (v6). SO_REUSEPORT is
// required." Grounded on the golang.org/x/sys/unix raw-ioctl/sockopt
// style the pack's network code (tap_device.go's TUNSETIFF ioctl) uses
// for platform-specific socket configuration the standard library does
// not expose.
func listenPacket(addr string, reusePort, multicast bool) (net.PacketConn, error) {
	lc := net.ListenConfig{}
	if reusePort {
		lc.Control = func(network, address string, c syscall.RawConn) error {
			var sockErr error
			err := c.Control(func(fd uintptr) {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
			})
			if err != nil {
				return err
			}
			return sockErr
		}
	}

	conn, err := lc.ListenPacket(context.Background(), "udp", addr)
	if err != nil {
		return nil, &nibe.AddressInUseError{Addr: addr, Err: err}
	}

	if multicast {
		if err := joinMulticastGroup(conn, addr); err != nil {
			conn.Close()
			return nil, err
		}
	}

	return conn, nil
}

// joinMulticastGroup joins the group named by the host part of addr on
// the interface that routes to it.
func joinMulticastGroup(pc net.PacketConn, addr string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("nibegw: multicast join: %w", err)
	}
	ip := net.ParseIP(host)
	if ip == nil || !ip.IsMulticast() {
		return nil
	}

	udpConn, ok := pc.(*net.UDPConn)
	if !ok {
		return fmt.Errorf("nibegw: multicast join requires a UDP socket")
	}
	rawConn, err := udpConn.SyscallConn()
	if err != nil {
		return err
	}

	var sockErr error
	err = rawConn.Control(func(fd uintptr) {
		if ip4 := ip.To4(); ip4 != nil {
			mreq := &unix.IPMreq{Multiaddr: [4]byte{ip4[0], ip4[1], ip4[2], ip4[3]}}
			sockErr = unix.SetsockoptIPMreq(int(fd), unix.IPPROTO_IP, unix.IP_ADD_MEMBERSHIP, mreq)
		} else {
			var mreq unix.IPv6Mreq
			copy(mreq.Multiaddr[:], ip.To16())
			sockErr = unix.SetsockoptIPv6Mreq(int(fd), unix.IPPROTO_IPV6, unix.IPV6_JOIN_GROUP, &mreq)
		}
	})
	if err != nil {
		return err
	}
	return sockErr
}
