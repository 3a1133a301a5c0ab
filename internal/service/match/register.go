package match

import (
	"context"

	"google.golang.org/grpc"

	"github.com/oggyb/muzz-matchmaker/internal/app"
	"github.com/oggyb/muzz-matchmaker/internal/server"
)

const ServiceName = "muzz.match.v1.MatchService"

// MatchServer is the handler contract of the Match gRPC service.
type MatchServer interface {
	Act(context.Context, *ActRequest) (*ActResponse, error)
	Unmatch(context.Context, *MatchRequest) (*TransitionResponse, error)
	Block(context.Context, *MatchRequest) (*TransitionResponse, error)
	SetPhotoReveal(context.Context, *SetPhotoRevealRequest) (*SetPhotoRevealResponse, error)
	GetPhotoReveal(context.Context, *MatchRequest) (*GetPhotoRevealResponse, error)
	ListMatches(context.Context, *ListMatchesRequest) (*ListMatchesResponse, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MatchServer)(nil),
	Methods: []grpc.MethodDesc{
		server.Unary(ServiceName, "Act", MatchServer.Act),
		server.Unary(ServiceName, "Unmatch", MatchServer.Unmatch),
		server.Unary(ServiceName, "Block", MatchServer.Block),
		server.Unary(ServiceName, "SetPhotoReveal", MatchServer.SetPhotoReveal),
		server.Unary(ServiceName, "GetPhotoReveal", MatchServer.GetPhotoReveal),
		server.Unary(ServiceName, "ListMatches", MatchServer.ListMatches),
	},
	Metadata: "match",
}

// Registrar ties the Match service into the gRPC server
type Registrar struct {
	appCtx *app.AppContext
}

func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register attaches the Match service implementation to the gRPC server
func (r *Registrar) Register(s grpc.ServiceRegistrar) {
	s.RegisterService(&serviceDesc, NewMatchService(r.appCtx))
}
