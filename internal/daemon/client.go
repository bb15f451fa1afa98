package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"

	srvctlv1 "srvctl/api/srvctl/v1"
)

// Dial opens a gRPC connection to the daemon over the default UNIX socket.
func Dial(ctx context.Context) (srvctlv1.SupervisorClient, *grpc.ClientConn, error) {
	return DialSocket(ctx, SocketPath())
}

// DialSocket connects to the daemon listening on path and waits until the
// connection is ready or ctx ends.
func DialSocket(ctx context.Context, path string) (srvctlv1.SupervisorClient, *grpc.ClientConn, error) {
	dialer := func(ctx context.Context, _ string) (net.Conn, error) {
		var d net.Dialer
		return d.DialContext(ctx, "unix", path)
	}
	// passthrough keeps the resolver away from the socket path.
	conn, err := grpc.NewClient(
		"passthrough:///srvctl",
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithContextDialer(dialer),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("dial %s: %w", path, err)
	}
	conn.Connect()
	if err := waitForReady(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return srvctlv1.NewSupervisorClient(conn), conn, nil
}

func waitForReady(ctx context.Context, conn *grpc.ClientConn) error {
	for {
		switch state := conn.GetState(); state {
		case connectivity.Ready:
			return nil
		case connectivity.Shutdown:
			return errors.New("grpc connection is shut down")
		default:
			if !conn.WaitForStateChange(ctx, state) {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return fmt.Errorf("grpc connection stuck in state %s", state.String())
			}
		}
	}
}
