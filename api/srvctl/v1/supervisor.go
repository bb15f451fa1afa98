// Package srvctlv1 describes the srvctl.v1.Supervisor gRPC service. Requests
// and responses are protobuf well-known types, so the service needs no
// generated message code; structured payloads travel as structpb values whose
// layout is defined by the views in this package.
package srvctlv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const ServiceName = "srvctl.v1.Supervisor"

const (
	MethodPing        = "/" + ServiceName + "/Ping"
	MethodStatus      = "/" + ServiceName + "/Status"
	MethodExec        = "/" + ServiceName + "/Exec"
	MethodRunCommand  = "/" + ServiceName + "/RunCommand"
	MethodBackup      = "/" + ServiceName + "/Backup"
	MethodListBackups = "/" + ServiceName + "/ListBackups"
	MethodRollback    = "/" + ServiceName + "/Rollback"
	MethodRestart     = "/" + ServiceName + "/Restart"
	MethodLogs        = "/" + ServiceName + "/Logs"
)

// SupervisorClient is the client API of the Supervisor service.
type SupervisorClient interface {
	Ping(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	Status(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	// Exec runs console input: one or more commands separated by newlines or ';'.
	Exec(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	RunCommand(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	Backup(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	ListBackups(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.ListValue, error)
	Rollback(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*emptypb.Empty, error)
	// Restart takes the force flag.
	Restart(ctx context.Context, in *wrapperspb.BoolValue, opts ...grpc.CallOption) (*emptypb.Empty, error)
	// Logs takes a comma separated list of entry kinds; empty means all.
	Logs(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.ListValue, error)
}

type supervisorClient struct {
	cc grpc.ClientConnInterface
}

// NewSupervisorClient returns a client bound to cc.
func NewSupervisorClient(cc grpc.ClientConnInterface) SupervisorClient {
	return &supervisorClient{cc: cc}
}

func invoke[T proto.Message](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, out T, opts []grpc.CallOption) (T, error) {
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

func (c *supervisorClient) Ping(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	return invoke(ctx, c.cc, MethodPing, in, new(wrapperspb.StringValue), opts)
}

func (c *supervisorClient) Status(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, MethodStatus, in, new(structpb.Struct), opts)
}

func (c *supervisorClient) Exec(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, MethodExec, in, new(structpb.Struct), opts)
}

func (c *supervisorClient) RunCommand(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, MethodRunCommand, in, new(structpb.Struct), opts)
}

func (c *supervisorClient) Backup(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, MethodBackup, in, new(structpb.Struct), opts)
}

func (c *supervisorClient) ListBackups(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	return invoke(ctx, c.cc, MethodListBackups, in, new(structpb.ListValue), opts)
}

func (c *supervisorClient) Rollback(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return invoke(ctx, c.cc, MethodRollback, in, new(emptypb.Empty), opts)
}

func (c *supervisorClient) Restart(ctx context.Context, in *wrapperspb.BoolValue, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return invoke(ctx, c.cc, MethodRestart, in, new(emptypb.Empty), opts)
}

func (c *supervisorClient) Logs(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	return invoke(ctx, c.cc, MethodLogs, in, new(structpb.ListValue), opts)
}

// SupervisorServer is the server API of the Supervisor service.
type SupervisorServer interface {
	Ping(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error)
	Status(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Exec(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	RunCommand(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	Backup(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ListBackups(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	Rollback(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
	Restart(context.Context, *wrapperspb.BoolValue) (*emptypb.Empty, error)
	Logs(context.Context, *wrapperspb.StringValue) (*structpb.ListValue, error)
}

// RegisterSupervisorServer registers srv with s.
func RegisterSupervisorServer(s grpc.ServiceRegistrar, srv SupervisorServer) {
	s.RegisterService(&Supervisor_ServiceDesc, srv)
}

func unary[Req proto.Message, Resp proto.Message](name string, newReq func() Req, call func(SupervisorServer, context.Context, Req) (Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := newReq()
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(SupervisorServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(SupervisorServer), ctx, req.(Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func newEmpty() *emptypb.Empty { return new(emptypb.Empty) }
func newString() *wrapperspb.StringValue { return new(wrapperspb.StringValue) }
func newBool() *wrapperspb.BoolValue { return new(wrapperspb.BoolValue) }

// Supervisor_ServiceDesc is the grpc.ServiceDesc for the Supervisor service.
var Supervisor_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SupervisorServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Ping", newEmpty, SupervisorServer.Ping),
		unary("Status", newEmpty, SupervisorServer.Status),
		unary("Exec", newString, SupervisorServer.Exec),
		unary("RunCommand", newString, SupervisorServer.RunCommand),
		unary("Backup", newEmpty, SupervisorServer.Backup),
		unary("ListBackups", newEmpty, SupervisorServer.ListBackups),
		unary("Rollback", newString, SupervisorServer.Rollback),
		unary("Restart", newBool, SupervisorServer.Restart),
		unary("Logs", newString, SupervisorServer.Logs),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "srvctl/v1/supervisor.proto",
}
