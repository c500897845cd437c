package grpc

import (
	"context"
	"runtime/debug"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-remittance/app/auth"
	"github.com/vibast-solutions/ms-go-remittance/app/factory"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	requestIDHeader     = "x-request-id"
	authorizationHeader = "authorization"
	apiKeyHeader        = "x-api-key"
)

type requestIDKey struct{}

func RecoveryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				logrus.WithFields(logrus.Fields{
					"method": info.FullMethod,
					"panic":  r,
					"stack":  string(debug.Stack()),
				}).Error("grpc_panic")
				err = status.Error(codes.Internal, "internal server error")
			}
		}()
		return handler(ctx, req)
	}
}

// RequestIDInterceptor requires an x-request-id header and stores it in the context.
func RequestIDInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		requestID := requestIDFromMetadata(ctx)
		if requestID == "" {
			return nil, status.Error(codes.InvalidArgument, "x-request-id header is required")
		}
		_ = grpc.SetHeader(ctx, metadata.Pairs(requestIDHeader, requestID))
		return handler(context.WithValue(ctx, requestIDKey{}, requestID), req)
	}
}

func LoggingInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		latency := time.Since(start)

		entry := logrus.WithFields(logrus.Fields{
			"method":     info.FullMethod,
			"code":       status.Code(err).String(),
			"latency":    latency.String(),
			"latency_ns": latency.Nanoseconds(),
		})
		if requestID := RequestIDFromContext(ctx); requestID != "" {
			entry = entry.WithField("request_id", requestID)
		}
		if err != nil {
			entry = entry.WithError(err)
		}
		entry.Info("grpc_request")
		return resp, err
	}
}

// PrivilegedAuthInterceptor admits bearer tokens of privileged roles. A call with an
// x-api-key and no bearer token is handed to internal instead, when set. Methods in
// public skip the check.
func PrivilegedAuthInterceptor(
	authenticator *auth.Authenticator,
	internal grpc.UnaryServerInterceptor,
	public ...string,
) grpc.UnaryServerInterceptor {
	open := make(map[string]struct{}, len(public))
	for _, method := range public {
		open[method] = struct{}{}
	}

	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if _, ok := open[info.FullMethod]; ok {
			return handler(ctx, req)
		}

		if internal != nil && firstMetadataValue(ctx, authorizationHeader) == "" && firstMetadataValue(ctx, apiKeyHeader) != "" {
			return internal(ctx, req, info, func(ctx context.Context, req interface{}) (interface{}, error) {
				return handler(auth.ContextWithIdentity(ctx, auth.InternalIdentity()), req)
			})
		}

		identity, err := authenticator.Authenticate(firstMetadataValue(ctx, authorizationHeader))
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}
		if !identity.Privileged {
			return nil, status.Error(codes.PermissionDenied, "forbidden")
		}
		return handler(auth.ContextWithIdentity(ctx, identity), req)
	}
}

func RequestIDFromContext(ctx context.Context) string {
	requestID, _ := ctx.Value(requestIDKey{}).(string)
	return requestID
}

func requestIDFromMetadata(ctx context.Context) string {
	return firstMetadataValue(ctx, requestIDHeader)
}

func firstMetadataValue(ctx context.Context, key string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	for _, value := range md.Get(key) {
		if value = strings.TrimSpace(value); value != "" {
			return value
		}
	}
	return ""
}

func loggerWithContext(ctx context.Context) logrus.FieldLogger {
	logger := factory.NewModuleLogger("ops-grpc")
	if requestID := RequestIDFromContext(ctx); requestID != "" {
		return logger.WithField("request_id", requestID)
	}
	return logger
}

func callerFromContext(ctx context.Context) *auth.Identity {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return nil
	}
	return identity
}
