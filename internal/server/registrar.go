package server

import "google.golang.org/grpc"

// Registrar attaches one API surface to the gRPC server.
// NewGRPCServer calls Register once for each registrar before serving.
type Registrar interface {
	Register(s *grpc.Server)
}
