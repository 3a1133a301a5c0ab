package chat

import (
	"context"

	"google.golang.org/grpc"

	"github.com/oggyb/muzz-matchmaker/internal/app"
	"github.com/oggyb/muzz-matchmaker/internal/server"
)

const ServiceName = "muzz.chat.v1.ChatService"

// ChatServer is the handler contract of the Chat gRPC service.
type ChatServer interface {
	ListChats(context.Context, *ListChatsRequest) (*ListChatsResponse, error)
	ListMessages(context.Context, *ListMessagesRequest) (*ListMessagesResponse, error)
	SendMessage(context.Context, *SendMessageRequest) (*SendMessageResponse, error)
	MarkRead(context.Context, *MarkReadRequest) (*MarkReadResponse, error)
	Connect(*ConnectRequest, grpc.ServerStream) error
}

// ConnectStream describes the server-streaming Connect call; clients pass it
// to grpc.ClientConn.NewStream.
var ConnectStream = grpc.StreamDesc{
	StreamName:    "Connect",
	ServerStreams: true,
	Handler: func(srv any, stream grpc.ServerStream) error {
		in := new(ConnectRequest)
		if err := stream.RecvMsg(in); err != nil {
			return err
		}
		return srv.(ChatServer).Connect(in, stream)
	},
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ChatServer)(nil),
	Methods: []grpc.MethodDesc{
		server.Unary(ServiceName, "ListChats", ChatServer.ListChats),
		server.Unary(ServiceName, "ListMessages", ChatServer.ListMessages),
		server.Unary(ServiceName, "SendMessage", ChatServer.SendMessage),
		server.Unary(ServiceName, "MarkRead", ChatServer.MarkRead),
	},
	Streams:  []grpc.StreamDesc{ConnectStream},
	Metadata: "chat",
}

// Registrar ties the Chat service into the gRPC server
type Registrar struct {
	appCtx *app.AppContext
}

func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register attaches the Chat service implementation to the gRPC server
func (r *Registrar) Register(s grpc.ServiceRegistrar) {
	s.RegisterService(&serviceDesc, NewChatService(r.appCtx))
}
