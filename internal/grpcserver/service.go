package grpcserver

import (
	"context"

	"google.golang.org/grpc"

	"palmer/internal/hackathon"
	"palmer/pkg/models"
)

const serviceName = "palmer.v1.HackathonService"

type ListHackathonsRequest struct {
	Status string `json:"status,omitempty"` // optional exact filter, "unknown" matches null
}

type ListHackathonsResponse struct {
	Count      int                `json:"count"`
	Hackathons []models.Hackathon `json:"hackathons"`
}

type GetHackathonRequest struct {
	ID int64 `json:"id"`
}

type GetHackathonResponse struct {
	Hackathon *models.Hackathon `json:"hackathon"`
}

type StatsRequest struct{}

type StatsResponse = hackathon.Stats

// HackathonServiceServer is the read-only query surface over gRPC.
type HackathonServiceServer interface {
	ListHackathons(context.Context, *ListHackathonsRequest) (*ListHackathonsResponse, error)
	GetHackathon(context.Context, *GetHackathonRequest) (*GetHackathonResponse, error)
	Stats(context.Context, *StatsRequest) (*StatsResponse, error)
}

func RegisterHackathonServiceServer(s grpc.ServiceRegistrar, srv HackathonServiceServer) {
	s.RegisterService(&HackathonServiceDesc, srv)
}

var HackathonServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*HackathonServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListHackathons", Handler: listHackathonsHandler},
		{MethodName: "GetHackathon", Handler: getHackathonHandler},
		{MethodName: "Stats", Handler: statsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "palmer/v1/hackathon.proto",
}

func listHackathonsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListHackathonsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(HackathonServiceServer).ListHackathons(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/ListHackathons"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(HackathonServiceServer).ListHackathons(ctx, req.(*ListHackathonsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getHackathonHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetHackathonRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(HackathonServiceServer).GetHackathon(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/GetHackathon"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(HackathonServiceServer).GetHackathon(ctx, req.(*GetHackathonRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func statsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(StatsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(HackathonServiceServer).Stats(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Stats"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(HackathonServiceServer).Stats(ctx, req.(*StatsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// Client calls HackathonService with the JSON codec.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, in, out any, opts ...grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, "/"+serviceName+"/"+method, in, out, opts...)
}

func (c *Client) ListHackathons(ctx context.Context, in *ListHackathonsRequest, opts ...grpc.CallOption) (*ListHackathonsResponse, error) {
	out := new(ListHackathonsResponse)
	if err := c.invoke(ctx, "ListHackathons", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetHackathon(ctx context.Context, in *GetHackathonRequest, opts ...grpc.CallOption) (*GetHackathonResponse, error) {
	out := new(GetHackathonResponse)
	if err := c.invoke(ctx, "GetHackathon", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Stats(ctx context.Context, in *StatsRequest, opts ...grpc.CallOption) (*StatsResponse, error) {
	out := new(StatsResponse)
	if err := c.invoke(ctx, "Stats", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
