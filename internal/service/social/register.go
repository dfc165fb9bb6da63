package social

import (
	"google.golang.org/grpc"

	api "github.com/oggyb/campus-connect/internal/api/social"
	"github.com/oggyb/campus-connect/internal/app"
)

// Registrar ties the Social service into the gRPC server
type Registrar struct {
	service *Service
}

// NewRegistrar creates a new Registrar for the Social service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{service: NewSocialService(appCtx)}
}

// Service exposes the instance registered on the server, so the caller can
// subscribe its router to the change feed.
func (r *Registrar) Service() *Service { return r.service }

// Register attaches the Social service implementation to the gRPC server
func (r *Registrar) Register(s *grpc.Server) {
	api.RegisterSocialServer(s, r.service)
}
