package api

import (
	"net/http"

	"github.com/absmach/dexgate/gateway"
	"github.com/absmach/dexgate/pkg/api"
)

var (
	_ api.Response = (*listSessionsRes)(nil)
	_ api.Response = (*healthRes)(nil)
)

type listSessionsRes struct {
	Sessions []gateway.Session `json:"sessions"`
	Total    int               `json:"total"`
}

func (res listSessionsRes) Code() int {
	return http.StatusOK
}

func (res listSessionsRes) Headers() map[string]string {
	return map[string]string{}
}

func (res listSessionsRes) Empty() bool {
	return false
}

type healthRes struct {
	Status     string `json:"status"`
	InstanceID string `json:"instance_id"`
}

func (res healthRes) Code() int {
	return http.StatusOK
}

func (res healthRes) Headers() map[string]string {
	return map[string]string{}
}

func (res healthRes) Empty() bool {
	return false
}
