// Package bot bridges join-code invitations to an external bot process over
// a Unix domain socket. The bridge itself is out of scope: this package
// only writes the join code and lets whatever is listening on the socket
// decide what to do with it.
package bot

import (
	"net"
	"time"

	"github.com/mafia-night/backend/internal/protocol"
)

const dialTimeout = 2 * time.Second

// Dialer writes a join code to a Unix domain socket on every invite. It
// dials fresh for each call rather than holding the connection open, since
// an invite is a one-shot, best-effort write with no reply expected.
type Dialer struct {
	socketPath string
}

// New builds a Dialer targeting the Unix socket at socketPath. No dial is
// attempted until the first Invite.
func New(socketPath string) *Dialer {
	return &Dialer{socketPath: socketPath}
}

// Invite dials the bridge socket and writes code. A dial failure or a
// short/failed write both surface as an error; the caller (internal/universe)
// is responsible for translating that into the wire-level ProtocolError.
func (d *Dialer) Invite(code protocol.JoinCode) error {
	conn, err := net.DialTimeout("unix", d.socketPath, dialTimeout)
	if err != nil {
		return err
	}
	defer conn.Close()

	conn.SetWriteDeadline(time.Now().Add(dialTimeout))
	_, err = conn.Write([]byte(code))
	return err
}
