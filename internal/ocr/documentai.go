package ocr

import (
	"context"
	"fmt"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DocumentAIConfig names a Document AI OCR processor.
type DocumentAIConfig struct {
	ProjectID       string
	Location        string
	ProcessorID     string
	CredentialsFile string
}

// DocumentAI recognizes text with a Google Document AI OCR processor.
type DocumentAI struct {
	client *documentai.DocumentProcessorClient
	name   string
}

// NewDocumentAI connects to the regional Document AI endpoint.
func NewDocumentAI(ctx context.Context, cfg DocumentAIConfig) (*DocumentAI, error) {
	if cfg.ProjectID == "" || cfg.Location == "" || cfg.ProcessorID == "" {
		return nil, fmt.Errorf("document ai: project, location and processor id are required")
	}

	opts := []option.ClientOption{
		option.WithEndpoint(fmt.Sprintf("%s-documentai.googleapis.com:443", cfg.Location)),
	}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create document ai client: %w", err)
	}

	return &DocumentAI{
		client: client,
		name: fmt.Sprintf("projects/%s/locations/%s/processors/%s",
			cfg.ProjectID, cfg.Location, cfg.ProcessorID),
	}, nil
}

func (d *DocumentAI) Name() string { return ProviderDocumentAI }

func (d *DocumentAI) Recognize(ctx context.Context, image []byte, progress ProgressFunc) (string, error) {
	progress.report(PhaseInitializing, 0)
	req := &documentaipb.ProcessRequest{
		Name: d.name,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  image,
				MimeType: DetectMIMEType(image),
			},
		},
		SkipHumanReview: true,
	}
	progress.report(PhaseInitializing, 1)

	progress.report(PhaseRecognizing, 0)
	resp, err := d.client.ProcessDocument(ctx, req)
	if err != nil {
		if isTransient(err) {
			return "", &RetryableError{Code: status.Code(err).String(), Message: err.Error()}
		}
		return "", fmt.Errorf("process document: %w", err)
	}
	progress.report(PhaseRecognizing, 1)

	return resp.GetDocument().GetText(), nil
}

// Close releases the gRPC connection.
func (d *DocumentAI) Close() error {
	return d.client.Close()
}

func isTransient(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded, codes.Aborted, codes.Internal:
		return true
	}
	return false
}
