package port

import (
	"context"
	"io"

	"github.com/garyjia/purchase-approval/internal/domain/entity"
)

// RequestExporter renders a list of requests as a downloadable document
type RequestExporter interface {
	Export(ctx context.Context, w io.Writer, requests []*entity.PurchaseRequest) error
	ContentType() string
	Extension() string
}
