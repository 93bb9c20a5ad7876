package shipping

import (
	"context"
	"errors"
	"fmt"
	"path"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/erp/console/internal/domain/shipping"
	"github.com/erp/console/internal/infrastructure/storage"
	"github.com/erp/console/internal/infrastructure/telemetry"
)

// ErrNoDocuments is returned when a dispatch order has nothing to export
var ErrNoDocuments = errors.New("dispatch order has no documents")

// Downloader fetches a document by relative path or absolute URL
type Downloader interface {
	Download(ctx context.Context, path string) ([]byte, error)
}

// ExportedDocument is one document written to storage
type ExportedDocument struct {
	Kind     shipping.DocumentKind `json:"kind" yaml:"kind"`
	Location string                `json:"location" yaml:"location"`
	Size     int                   `json:"size" yaml:"size"`
}

// Exporter copies shipment and invoice PDFs into object storage
type Exporter struct {
	source Downloader
	target storage.Store
	logger *zap.Logger
}

// NewExporter creates an exporter
func NewExporter(source Downloader, target storage.Store, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{source: source, target: target, logger: logger}
}

// Export downloads the order's documents of the given kinds (all kinds when
// none are given) and stores them under "{awb or id}/{file name}".
// Documents already written stay in storage when a later one fails.
func (e *Exporter) Export(ctx context.Context, o shipping.DispatchOrder, kinds ...shipping.DocumentKind) ([]ExportedDocument, error) {
	ctx, span := telemetry.StartSpan(ctx, "export", "documents", attribute.String("order.id", o.ID))
	defer span.End()

	var docs []shipping.Document
	for _, d := range o.Documents() {
		if len(kinds) == 0 || slices.Contains(kinds, d.Kind) {
			docs = append(docs, d)
		}
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoDocuments, o.ID)
	}

	folder := o.AWBNo
	if folder == "" {
		folder = o.ID
	}

	out := make([]ExportedDocument, 0, len(docs))
	for _, d := range docs {
		data, err := e.source.Download(ctx, d.Path)
		if err != nil {
			telemetry.RecordError(span, err)
			return out, fmt.Errorf("download %s: %w", d.Kind, err)
		}
		location, err := e.target.Put(ctx, path.Join(folder, d.FileName()), data, "application/pdf")
		if err != nil {
			telemetry.RecordError(span, err)
			return out, fmt.Errorf("store %s: %w", d.Kind, err)
		}
		e.logger.Info("Exported document",
			zap.String("order_id", o.ID),
			zap.String("kind", string(d.Kind)),
			zap.String("location", location),
		)
		out = append(out, ExportedDocument{Kind: d.Kind, Location: location, Size: len(data)})
	}
	return out, nil
}
