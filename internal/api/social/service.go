package social

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "campusconnect.social.v1.SocialService"

// SocialServer is the server API of the social service.
type SocialServer interface {
	ProvisionAccount(context.Context, *ProvisionAccountRequest) (*ProvisionAccountResponse, error)
	GetProfile(context.Context, *GetProfileRequest) (*ProfileResponse, error)
	UpdateProfile(context.Context, *UpdateProfileRequest) (*ProfileResponse, error)
	Discover(context.Context, *DiscoverRequest) (*DiscoverResponse, error)
	RecordDecision(context.Context, *RecordDecisionRequest) (*RecordDecisionResponse, error)
	ListMatches(context.Context, *ListMatchesRequest) (*ListMatchesResponse, error)
	ListConversations(context.Context, *ListConversationsRequest) (*ListConversationsResponse, error)
	OpenConversation(context.Context, *OpenConversationRequest) (*OpenConversationResponse, error)
	CloseConversation(context.Context, *CloseConversationRequest) (*CloseConversationResponse, error)
	SendMessage(context.Context, *SendMessageRequest) (*SendMessageResponse, error)
	ListLikedYou(context.Context, *ListLikedYouRequest) (*ListLikedYouResponse, error)
	ListNewLikedYou(context.Context, *ListLikedYouRequest) (*ListLikedYouResponse, error)
	CountLikedYou(context.Context, *CountLikedYouRequest) (*CountLikedYouResponse, error)
	PollNotifications(context.Context, *PollNotificationsRequest) (*PollNotificationsResponse, error)
	EndSession(context.Context, *EndSessionRequest) (*EndSessionResponse, error)
}

// ServiceDesc describes SocialService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SocialServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("ProvisionAccount", SocialServer.ProvisionAccount),
		unary("GetProfile", SocialServer.GetProfile),
		unary("UpdateProfile", SocialServer.UpdateProfile),
		unary("Discover", SocialServer.Discover),
		unary("RecordDecision", SocialServer.RecordDecision),
		unary("ListMatches", SocialServer.ListMatches),
		unary("ListConversations", SocialServer.ListConversations),
		unary("OpenConversation", SocialServer.OpenConversation),
		unary("CloseConversation", SocialServer.CloseConversation),
		unary("SendMessage", SocialServer.SendMessage),
		unary("ListLikedYou", SocialServer.ListLikedYou),
		unary("ListNewLikedYou", SocialServer.ListNewLikedYou),
		unary("CountLikedYou", SocialServer.CountLikedYou),
		unary("PollNotifications", SocialServer.PollNotifications),
		unary("EndSession", SocialServer.EndSession),
	},
	Streams: []grpc.StreamDesc{},
}

func RegisterSocialServer(s grpc.ServiceRegistrar, srv SocialServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// unary adapts a typed SocialServer method to a grpc.MethodDesc.
func unary[Req, Resp any](method string, call func(SocialServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(SocialServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(SocialServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
