package profile

import (
	"context"

	"google.golang.org/grpc"

	"github.com/oggyb/muzz-matchmaker/internal/app"
	"github.com/oggyb/muzz-matchmaker/internal/server"
)

const ServiceName = "muzz.profile.v1.ProfileService"

// ProfileServer is the handler contract of the Profile gRPC service.
type ProfileServer interface {
	GetProfile(context.Context, *GetProfileRequest) (*GetProfileResponse, error)
	UpdateProfile(context.Context, *UpdateProfileRequest) (*UpdateProfileResponse, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ProfileServer)(nil),
	Methods: []grpc.MethodDesc{
		server.Unary(ServiceName, "GetProfile", ProfileServer.GetProfile),
		server.Unary(ServiceName, "UpdateProfile", ProfileServer.UpdateProfile),
	},
	Metadata: "profile",
}

// Registrar ties the Profile service into the gRPC server
type Registrar struct {
	appCtx *app.AppContext
}

func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register attaches the Profile service implementation to the gRPC server
func (r *Registrar) Register(s grpc.ServiceRegistrar) {
	s.RegisterService(&serviceDesc, NewProfileService(r.appCtx))
}
