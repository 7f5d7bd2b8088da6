package rdt

import "net"

// A sendConn is a connected datagram channel to the receiver.
type sendConn interface {
	Write(b []byte) error
	Read(b []byte) (int, error)
	Close() error
	LocalAddr() net.Addr
	RemoteAddr() net.Addr
}

type basicConn struct {
	net.Conn
}

var _ sendConn = &basicConn{}

func newSendConn(c net.Conn) sendConn {
	return &basicConn{Conn: c}
}

func (c *basicConn) Write(b []byte) error {
	_, err := c.Conn.Write(b)
	return err
}
