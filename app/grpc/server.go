package grpc

import (
	"context"
	"errors"

	"github.com/vibast-solutions/ms-go-remittance/app/mapper"
	"github.com/vibast-solutions/ms-go-remittance/app/service"
	"github.com/vibast-solutions/ms-go-remittance/app/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Server exposes operator actions over gRPC.
type Server struct {
	types.UnimplementedOpsServiceServer
	paymentService *service.PaymentService
}

func NewServer(paymentService *service.PaymentService) *Server {
	return &Server{paymentService: paymentService}
}

func (s *Server) Health(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{"status": "ok"})
}

func (s *Server) Reprocess(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	l := loggerWithContext(ctx)
	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "session id is required")
	}

	result, err := s.paymentService.Reprocess(ctx, req.GetValue())
	if err != nil {
		if grpcErr := statusFromServiceError(err); grpcErr != nil {
			return nil, grpcErr
		}
		l.WithError(err).WithField("session_id", req.GetValue()).Error("Reprocess failed")
		return nil, status.Error(codes.Internal, "internal server error")
	}

	return s.toStruct(ctx, mapper.ReprocessToResponse(result))
}

func (s *Server) GetSession(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	l := loggerWithContext(ctx)
	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "session id is required")
	}

	caller := callerFromContext(ctx)
	view, err := s.paymentService.GetSession(ctx, "", req.GetValue(), caller)
	if err != nil {
		if grpcErr := statusFromServiceError(err); grpcErr != nil {
			return nil, grpcErr
		}
		l.WithError(err).WithField("session_id", req.GetValue()).Error("Get session failed")
		return nil, status.Error(codes.Internal, "internal server error")
	}

	return s.toStruct(ctx, mapper.SessionViewToResponse(view, caller))
}

func (s *Server) toStruct(ctx context.Context, v interface{}) (*structpb.Struct, error) {
	out, err := mapper.ToStruct(v)
	if err != nil {
		loggerWithContext(ctx).WithError(err).Error("Failed to encode response")
		return nil, status.Error(codes.Internal, "internal server error")
	}
	return out, nil
}

func statusFromServiceError(err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrProviderUnsupported):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrPaymentNotFound):
		return status.Error(codes.NotFound, "payment not found")
	case errors.Is(err, service.ErrForbidden):
		return status.Error(codes.PermissionDenied, "forbidden")
	case errors.Is(err, service.ErrPaymentNotSucceeded):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, service.ErrProviderUnavailable):
		return status.Error(codes.Unavailable, "payment provider unavailable")
	default:
		return nil
	}
}
