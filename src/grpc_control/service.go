package grpc_control

import (
	"context"
	"encoding/json"
	"fmt"

	"dex-datafeed/src/datafeed"
	"dex-datafeed/src/helpers"
	"dex-datafeed/src/logger"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ControlService implements ControlServer on top of a running Datafeed.
type ControlService struct {
	Feed   *datafeed.Datafeed
	Logger *logger.Logger
}

// NewControlService creates a new instance of ControlService
func NewControlService(feed *datafeed.Datafeed, log *logger.Logger) *ControlService {
	if log == nil {
		log = logger.NewLogger(nil, "ControlService")
	}
	return &ControlService{Feed: feed, Logger: log}
}

// -----------------------------------------------------------------------------

func (s *ControlService) GetStatus(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error) {
	out, err := toStruct(s.Feed.Status())
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode status: %v", err)
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func (s *ControlService) RefreshReference(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error) {
	if err := s.Feed.Reference().Refresh(ctx); err != nil {
		s.Logger.Warning("gRPC: reference refresh failed: %v", err)
		if helpers.IsReferenceUnavailable(err) {
			return nil, status.Errorf(codes.Unavailable, "%v", err)
		}
		return nil, status.Errorf(codes.Internal, "%v", err)
	}

	ref, _ := s.Feed.Reference().Reference()
	s.Logger.Info("gRPC: reference refreshed, %s = %f", ref.Symbol, ref.Rate)

	out, err := toStruct(ref)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode reference: %v", err)
	}
	return out, nil
}

// -----------------------------------------------------------------------------

// Unsubscribe cancels a live subscription by uid. A websocket owner hears about
// it through the feed's stop listener.
func (s *ControlService) Unsubscribe(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	uid := req.GetFields()["uid"].GetStringValue()
	if uid == "" {
		return nil, status.Error(codes.InvalidArgument, "uid is required")
	}

	if !s.Feed.UnsubscribeBars(uid) {
		return nil, status.Errorf(codes.NotFound, "subscription %s not found", uid)
	}

	s.Logger.Info("gRPC: unsubscribed %s", uid)
	return structpb.NewStruct(map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("Unsubscribed %s", uid),
	})
}

// -----------------------------------------------------------------------------

// toStruct converts any JSON-tagged value to a protobuf Struct.
func toStruct(v interface{}) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}
