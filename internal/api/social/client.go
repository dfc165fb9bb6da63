package social

import (
	"context"

	"google.golang.org/grpc"
)

// Client calls SocialService over any gRPC connection using the JSON codec.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, fullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ProvisionAccount(ctx context.Context, in *ProvisionAccountRequest, opts ...grpc.CallOption) (*ProvisionAccountResponse, error) {
	return invoke[ProvisionAccountResponse](ctx, c.cc, "ProvisionAccount", in, opts)
}

func (c *Client) GetProfile(ctx context.Context, in *GetProfileRequest, opts ...grpc.CallOption) (*ProfileResponse, error) {
	return invoke[ProfileResponse](ctx, c.cc, "GetProfile", in, opts)
}

func (c *Client) UpdateProfile(ctx context.Context, in *UpdateProfileRequest, opts ...grpc.CallOption) (*ProfileResponse, error) {
	return invoke[ProfileResponse](ctx, c.cc, "UpdateProfile", in, opts)
}

func (c *Client) Discover(ctx context.Context, in *DiscoverRequest, opts ...grpc.CallOption) (*DiscoverResponse, error) {
	return invoke[DiscoverResponse](ctx, c.cc, "Discover", in, opts)
}

func (c *Client) RecordDecision(ctx context.Context, in *RecordDecisionRequest, opts ...grpc.CallOption) (*RecordDecisionResponse, error) {
	return invoke[RecordDecisionResponse](ctx, c.cc, "RecordDecision", in, opts)
}

func (c *Client) ListMatches(ctx context.Context, in *ListMatchesRequest, opts ...grpc.CallOption) (*ListMatchesResponse, error) {
	return invoke[ListMatchesResponse](ctx, c.cc, "ListMatches", in, opts)
}

func (c *Client) ListConversations(ctx context.Context, in *ListConversationsRequest, opts ...grpc.CallOption) (*ListConversationsResponse, error) {
	return invoke[ListConversationsResponse](ctx, c.cc, "ListConversations", in, opts)
}

func (c *Client) OpenConversation(ctx context.Context, in *OpenConversationRequest, opts ...grpc.CallOption) (*OpenConversationResponse, error) {
	return invoke[OpenConversationResponse](ctx, c.cc, "OpenConversation", in, opts)
}

func (c *Client) CloseConversation(ctx context.Context, in *CloseConversationRequest, opts ...grpc.CallOption) (*CloseConversationResponse, error) {
	return invoke[CloseConversationResponse](ctx, c.cc, "CloseConversation", in, opts)
}

func (c *Client) SendMessage(ctx context.Context, in *SendMessageRequest, opts ...grpc.CallOption) (*SendMessageResponse, error) {
	return invoke[SendMessageResponse](ctx, c.cc, "SendMessage", in, opts)
}

func (c *Client) ListLikedYou(ctx context.Context, in *ListLikedYouRequest, opts ...grpc.CallOption) (*ListLikedYouResponse, error) {
	return invoke[ListLikedYouResponse](ctx, c.cc, "ListLikedYou", in, opts)
}

func (c *Client) ListNewLikedYou(ctx context.Context, in *ListLikedYouRequest, opts ...grpc.CallOption) (*ListLikedYouResponse, error) {
	return invoke[ListLikedYouResponse](ctx, c.cc, "ListNewLikedYou", in, opts)
}

func (c *Client) CountLikedYou(ctx context.Context, in *CountLikedYouRequest, opts ...grpc.CallOption) (*CountLikedYouResponse, error) {
	return invoke[CountLikedYouResponse](ctx, c.cc, "CountLikedYou", in, opts)
}

func (c *Client) PollNotifications(ctx context.Context, in *PollNotificationsRequest, opts ...grpc.CallOption) (*PollNotificationsResponse, error) {
	return invoke[PollNotificationsResponse](ctx, c.cc, "PollNotifications", in, opts)
}

func (c *Client) EndSession(ctx context.Context, in *EndSessionRequest, opts ...grpc.CallOption) (*EndSessionResponse, error) {
	return invoke[EndSessionResponse](ctx, c.cc, "EndSession", in, opts)
}
