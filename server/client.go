package server

import (
	"context"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// InspectClient calls an InspectService over Connect.
type InspectClient struct {
	stats    *connect.Client[emptypb.Empty, structpb.Struct]
	collect  *connect.Client[structpb.Struct, structpb.Struct]
	intern   *connect.Client[structpb.Struct, structpb.Struct]
	store    *connect.Client[structpb.Struct, structpb.Struct]
	describe *connect.Client[structpb.Struct, structpb.Struct]
	release  *connect.Client[structpb.Struct, structpb.Struct]
	snapshot *connect.Client[emptypb.Empty, structpb.Struct]
}

// NewInspectClient creates a client for the service at baseURL
// (for example "http://localhost:7411").
func NewInspectClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *InspectClient {
	return &InspectClient{
		stats:    connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+StatsProcedure, opts...),
		collect:  connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+CollectProcedure, opts...),
		intern:   connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+InternProcedure, opts...),
		store:    connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+StoreProcedure, opts...),
		describe: connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+DescribeProcedure, opts...),
		release:  connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+ReleaseProcedure, opts...),
		snapshot: connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+SnapshotProcedure, opts...),
	}
}

// Stats fetches heap counters.
func (c *InspectClient) Stats(ctx context.Context) (map[string]any, error) {
	return unary(ctx, c.stats, &emptypb.Empty{})
}

// Collect runs a collection on the server.
func (c *InspectClient) Collect(ctx context.Context, force bool) (map[string]any, error) {
	return call(ctx, c.collect, map[string]any{"force": force})
}

// Intern interns name and returns its handle.
func (c *InspectClient) Intern(ctx context.Context, name string) (map[string]any, error) {
	return call(ctx, c.intern, map[string]any{"name": name})
}

// Store sends a JSON-compatible value to be converted into a Lisp object.
func (c *InspectClient) Store(ctx context.Context, value any) (map[string]any, error) {
	return call(ctx, c.store, map[string]any{"value": value})
}

// Describe renders the value behind a handle.
func (c *InspectClient) Describe(ctx context.Context, handle string) (map[string]any, error) {
	return call(ctx, c.describe, map[string]any{"handle": handle})
}

// Release drops a handle.
func (c *InspectClient) Release(ctx context.Context, handle string) (map[string]any, error) {
	return call(ctx, c.release, map[string]any{"handle": handle})
}

// Snapshot captures the server heap.
func (c *InspectClient) Snapshot(ctx context.Context) (map[string]any, error) {
	return unary(ctx, c.snapshot, &emptypb.Empty{})
}

func call(ctx context.Context, client *connect.Client[structpb.Struct, structpb.Struct], m map[string]any) (map[string]any, error) {
	msg, err := structpb.NewStruct(m)
	if err != nil {
		return nil, err
	}
	return unary(ctx, client, msg)
}

func unary[Req any](ctx context.Context, client *connect.Client[Req, structpb.Struct], msg *Req) (map[string]any, error) {
	resp, err := client.CallUnary(ctx, connect.NewRequest(msg))
	if err != nil {
		return nil, err
	}
	return resp.Msg.AsMap(), nil
}
