package explore

import (
	"context"

	"google.golang.org/grpc"

	"github.com/oggyb/muzz-matchmaker/internal/app"
	"github.com/oggyb/muzz-matchmaker/internal/server"
)

const ServiceName = "muzz.explore.v1.ExploreService"

// ExploreServer is the handler contract of the Explore gRPC service.
type ExploreServer interface {
	Suggestions(context.Context, *SuggestionsRequest) (*SuggestionsResponse, error)
	MostCompatible(context.Context, *MostCompatibleRequest) (*MostCompatibleResponse, error)
	IncomingLikes(context.Context, *IncomingLikesRequest) (*IncomingLikesResponse, error)
	CountIncomingLikes(context.Context, *CountIncomingLikesRequest) (*CountIncomingLikesResponse, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ExploreServer)(nil),
	Methods: []grpc.MethodDesc{
		server.Unary(ServiceName, "Suggestions", ExploreServer.Suggestions),
		server.Unary(ServiceName, "MostCompatible", ExploreServer.MostCompatible),
		server.Unary(ServiceName, "IncomingLikes", ExploreServer.IncomingLikes),
		server.Unary(ServiceName, "CountIncomingLikes", ExploreServer.CountIncomingLikes),
	},
	Metadata: "explore",
}

// Registrar ties the Explore service into the gRPC server
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the Explore service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register attaches the Explore service implementation to the gRPC server
func (r *Registrar) Register(s grpc.ServiceRegistrar) {
	s.RegisterService(&serviceDesc, NewExploreService(r.appCtx))
}
