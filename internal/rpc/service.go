// Package rpc exposes the sentence compiler as the gRPC service
// hglc.v1.SentenceService. Requests and responses are protobuf well-known
// types so no generated code is needed on either side.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "hglc.v1.SentenceService"

// Method names.
const (
	MethodCompile      = "Compile"
	MethodCanonicalize = "Canonicalize"
	MethodFingerprint  = "Fingerprint"
	MethodLookup       = "Lookup"
)

// SentenceServiceServer is implemented by Server.
//
//	Compile(StringValue line) -> Struct {fingerprint, canonical, duplicate, sentence}
//	Canonicalize(StringValue json) -> StringValue canonical json
//	Fingerprint(StringValue json) -> StringValue sha256 hex
//	Lookup(StringValue fingerprint) -> Struct ledger entry
type SentenceServiceServer interface {
	Compile(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	Canonicalize(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
	Fingerprint(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
	Lookup(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// stringMethod adapts a handler taking a StringValue to a grpc.MethodDesc.
func stringMethod(name string, call func(SentenceServiceServer, context.Context, *wrapperspb.StringValue) (proto.Message, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(wrapperspb.StringValue)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(SentenceServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(SentenceServiceServer), ctx, req.(*wrapperspb.StringValue))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SentenceServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		stringMethod(MethodCompile, func(s SentenceServiceServer, ctx context.Context, in *wrapperspb.StringValue) (proto.Message, error) {
			return s.Compile(ctx, in)
		}),
		stringMethod(MethodCanonicalize, func(s SentenceServiceServer, ctx context.Context, in *wrapperspb.StringValue) (proto.Message, error) {
			return s.Canonicalize(ctx, in)
		}),
		stringMethod(MethodFingerprint, func(s SentenceServiceServer, ctx context.Context, in *wrapperspb.StringValue) (proto.Message, error) {
			return s.Fingerprint(ctx, in)
		}),
		stringMethod(MethodLookup, func(s SentenceServiceServer, ctx context.Context, in *wrapperspb.StringValue) (proto.Message, error) {
			return s.Lookup(ctx, in)
		}),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "hglc/v1/sentence.proto",
}

// RegisterSentenceServiceServer registers srv on s.
func RegisterSentenceServiceServer(s grpc.ServiceRegistrar, srv SentenceServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}
