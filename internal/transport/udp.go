package transport

import (
	"net"

	"distributed-protocols/internal/wire"
)

const maxDatagramSize = 64 * 1024

// UDPTransport is the production Transport: one bound UDP socket, a reader
// goroutine pumping packets into a channel.
type UDPTransport struct {
	conn  *net.UDPConn
	addr  wire.Address
	inbox chan Packet
	done  chan struct{}
}

// Listen binds a UDP socket on addr ("host:port") and starts pumping
// inbound datagrams into the returned transport's Inbox.
func Listen(addr string) (*UDPTransport, error) {
	laddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, err
	}

	t := &UDPTransport{
		conn:  conn,
		addr:  wire.Address(conn.LocalAddr().String()),
		inbox: make(chan Packet, 256),
		done:  make(chan struct{}),
	}
	go t.readLoop()
	return t, nil
}

func (t *UDPTransport) readLoop() {
	buf := make([]byte, maxDatagramSize)
	for {
		n, raddr, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			close(t.inbox)
			return
		}
		data := make([]byte, n)
		copy(data, buf[:n])

		select {
		case t.inbox <- Packet{From: wire.Address(raddr.String()), Data: data}:
		case <-t.done:
			return
		}
	}
}

func (t *UDPTransport) LocalAddr() wire.Address { return t.addr }

func (t *UDPTransport) Send(addr wire.Address, data []byte) error {
	raddr, err := net.ResolveUDPAddr("udp", string(addr))
	if err != nil {
		return err
	}
	_, err = t.conn.WriteToUDP(data, raddr)
	return err
}

func (t *UDPTransport) Inbox() <-chan Packet { return t.inbox }

func (t *UDPTransport) Close() error {
	close(t.done)
	return t.conn.Close()
}
