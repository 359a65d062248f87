// Package blocked provides the synthetic always-blocking library. Routing a
// lane to it disables traffic safely without unregistering anything; it is
// registered at startup so the registry always has a safe target.
package blocked

import (
	"context"

	endpointmodels "lanegate/internal/endpoint/models"
	"lanegate/internal/endpoint/ports"
	"lanegate/internal/registry/models"
	id "lanegate/pkg/domain"
	derrors "lanegate/pkg/errors"
)

// ErrBlocked is returned by every operation.
var ErrBlocked = derrors.New(derrors.CodeUnavailable, "message path blocked")

// Library declares full capability on every domain and refuses all traffic.
type Library struct{}

// New creates the blocking library.
func New() *Library { return &Library{} }

func (l *Library) ID() models.LibraryID     { return models.BlockedLibrary }
func (l *Library) Type() models.LibraryType { return models.TypeSendAndReceive }

// SupportsDomain is true everywhere so any lane can be pointed here.
func (l *Library) SupportsDomain(id.DomainID) bool { return true }

func (l *Library) SetConfig(context.Context, id.AppID, uint32, []byte) error {
	return ErrBlocked
}

func (l *Library) GetConfig(context.Context, id.AppID, uint32) ([]byte, error) {
	return nil, ErrBlocked
}

func (l *Library) Quote(context.Context, endpointmodels.Packet, []byte, bool) (endpointmodels.Fee, error) {
	return endpointmodels.Fee{}, ErrBlocked
}

func (l *Library) Send(context.Context, endpointmodels.Packet, []byte, bool) (endpointmodels.Fee, []byte, error) {
	return endpointmodels.Fee{}, nil, ErrBlocked
}

func (l *Library) FeeCollector() id.AppID { return id.None }

var _ ports.SendLibrary = (*Library)(nil)
