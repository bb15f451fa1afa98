package app

import (
	"context"
	"errors"
	"io"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"

	srvctlv1 "srvctl/api/srvctl/v1"
)

type fakeConn struct {
	invoke func(ctx context.Context, method string, args interface{}, reply interface{}, opts ...grpc.CallOption) error
	closed bool
}

func (f *fakeConn) Invoke(ctx context.Context, method string, args interface{}, reply interface{}, opts ...grpc.CallOption) error {
	if f.invoke != nil {
		return f.invoke(ctx, method, args, reply, opts...)
	}
	return nil
}

func (f *fakeConn) NewStream(ctx context.Context, desc *grpc.StreamDesc, method string, opts ...grpc.CallOption) (grpc.ClientStream, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

func stubDaemon(t *testing.T, running bool, dial func(context.Context) (srvctlv1.SupervisorClient, io.Closer, error)) {
	t.Helper()
	resetDaemonDeps()
	daemonIsRunning = func() bool { return running }
	if dial == nil {
		dial = func(context.Context) (srvctlv1.SupervisorClient, io.Closer, error) {
			return nil, nil, errors.New("dial not stubbed")
		}
	}
	dialDaemonClient = dial
	t.Cleanup(resetDaemonDeps)
}

// stubReply answers every call to method with resp and records the request.
func stubReply(t *testing.T, method string, resp proto.Message, gotReq *proto.Message) *fakeConn {
	t.Helper()
	conn := &fakeConn{
		invoke: func(ctx context.Context, m string, args interface{}, reply interface{}, opts ...grpc.CallOption) error {
			if m != method {
				t.Fatalf("unexpected method %s, want %s", m, method)
			}
			if gotReq != nil {
				*gotReq = args.(proto.Message)
			}
			proto.Merge(reply.(proto.Message), resp)
			return nil
		},
	}
	stubDaemon(t, true, func(context.Context) (srvctlv1.SupervisorClient, io.Closer, error) {
		return srvctlv1.NewSupervisorClient(conn), conn, nil
	})
	return conn
}
