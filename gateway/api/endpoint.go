package api

import (
	"context"

	"github.com/absmach/dexgate/gateway"
	"github.com/go-kit/kit/endpoint"
)

func listSessionsEndpoint(svc gateway.Service) endpoint.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		sessions, err := svc.ListSessions(ctx)
		if err != nil {
			return listSessionsRes{}, err
		}

		return listSessionsRes{
			Sessions: sessions,
			Total:    len(sessions),
		}, nil
	}
}

func healthEndpoint(instanceID string) endpoint.Endpoint {
	return func(_ context.Context, _ any) (any, error) {
		return healthRes{
			Status:     "pass",
			InstanceID: instanceID,
		}, nil
	}
}
