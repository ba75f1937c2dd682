package zoho

import (
	"context"
	"net/http"

	"github.com/easypluginz/apphistory/internal/types"
)

// The bridge interfaces are the only way the rest of the SDK talks to the
// CRM. Production wires HTTPBridge; tests substitute fakes.

// RecordAPI covers single-record and related-list operations.
type RecordAPI interface {
	GetRecord(ctx context.Context, module, id string) (*types.RawRecord, error)
	InsertRecord(ctx context.Context, module string, fields map[string]interface{}) (string, error)
	UpdateRecord(ctx context.Context, module, id string, fields map[string]interface{}) error
	DeleteRecord(ctx context.Context, module, id string) error
	GetRelatedRecords(ctx context.Context, module, id, relation string) ([]types.RawRecord, error)
	SearchByWord(ctx context.Context, module, word string) ([]types.RawRecord, error)
}

// QueryAPI runs COQL select statements.
type QueryAPI interface {
	Query(ctx context.Context, query string) ([]types.RawRecord, error)
}

// UserAPI exposes the org user directory.
type UserAPI interface {
	ListUsers(ctx context.Context) ([]types.OwnerEntry, error)
	CurrentUser(ctx context.Context) (*types.OwnerEntry, error)
}

// FunctionAPI executes server-side functions by API name.
type FunctionAPI interface {
	ExecuteFunction(ctx context.Context, name string, args map[string]string) error
}

// AttachmentAPI manages files on records. Download goes through the vendor
// proxy because the CRM's file endpoint is not directly reachable from
// widget contexts.
type AttachmentAPI interface {
	ListAttachments(ctx context.Context, module, id string) ([]types.Attachment, error)
	UploadAttachment(ctx context.Context, module, id string, up types.AttachmentUpload) (string, error)
	DeleteAttachment(ctx context.Context, module, id, attachmentID string) error
	DownloadAttachment(ctx context.Context, module, id, attachmentID string) ([]byte, string, error)
}

// Bridge is the full capability surface.
type Bridge interface {
	RecordAPI
	QueryAPI
	UserAPI
	FunctionAPI
	AttachmentAPI
}

// HTTPBridge implements Bridge over the CRM REST API. The embedded
// http.Client is expected to carry authentication (an OAuth transport or
// equivalent); this package only shapes requests and decodes envelopes.
type HTTPBridge struct {
	HTTP *http.Client

	// BaseURL is the data-center API origin, e.g. https://www.zohoapis.com.au.
	BaseURL string

	// ProxyURL serves attachment downloads. TokenURL and DataCenterURL are
	// forwarded to the proxy so it can fetch files on our behalf.
	ProxyURL      string
	TokenURL      string
	DataCenterURL string
}

var _ Bridge = (*HTTPBridge)(nil)

func (b *HTTPBridge) client() *http.Client {
	if b.HTTP != nil {
		return b.HTTP
	}
	return http.DefaultClient
}

func (b *HTTPBridge) GetRecord(ctx context.Context, module, id string) (*types.RawRecord, error) {
	return GetRecord(ctx, b.client(), b.BaseURL, module, id)
}

func (b *HTTPBridge) InsertRecord(ctx context.Context, module string, fields map[string]interface{}) (string, error) {
	return InsertRecord(ctx, b.client(), b.BaseURL, module, fields)
}

func (b *HTTPBridge) UpdateRecord(ctx context.Context, module, id string, fields map[string]interface{}) error {
	return UpdateRecord(ctx, b.client(), b.BaseURL, module, id, fields)
}

func (b *HTTPBridge) DeleteRecord(ctx context.Context, module, id string) error {
	return DeleteRecord(ctx, b.client(), b.BaseURL, module, id)
}

func (b *HTTPBridge) GetRelatedRecords(ctx context.Context, module, id, relation string) ([]types.RawRecord, error) {
	return GetRelatedRecords(ctx, b.client(), b.BaseURL, module, id, relation)
}

func (b *HTTPBridge) SearchByWord(ctx context.Context, module, word string) ([]types.RawRecord, error) {
	return SearchByWord(ctx, b.client(), b.BaseURL, module, word)
}

func (b *HTTPBridge) Query(ctx context.Context, query string) ([]types.RawRecord, error) {
	return Query(ctx, b.client(), b.BaseURL, query)
}

func (b *HTTPBridge) ListUsers(ctx context.Context) ([]types.OwnerEntry, error) {
	return ListUsers(ctx, b.client(), b.BaseURL)
}

func (b *HTTPBridge) CurrentUser(ctx context.Context) (*types.OwnerEntry, error) {
	return CurrentUser(ctx, b.client(), b.BaseURL)
}

func (b *HTTPBridge) ExecuteFunction(ctx context.Context, name string, args map[string]string) error {
	return ExecuteFunction(ctx, b.client(), b.BaseURL, name, args)
}

func (b *HTTPBridge) ListAttachments(ctx context.Context, module, id string) ([]types.Attachment, error) {
	return ListAttachments(ctx, b.client(), b.BaseURL, module, id)
}

func (b *HTTPBridge) UploadAttachment(ctx context.Context, module, id string, up types.AttachmentUpload) (string, error) {
	return UploadAttachment(ctx, b.client(), b.BaseURL, module, id, up)
}

func (b *HTTPBridge) DeleteAttachment(ctx context.Context, module, id, attachmentID string) error {
	return DeleteAttachment(ctx, b.client(), b.BaseURL, module, id, attachmentID)
}

func (b *HTTPBridge) DownloadAttachment(ctx context.Context, module, id, attachmentID string) ([]byte, string, error) {
	return DownloadAttachment(ctx, b.client(), b.ProxyURL, DownloadRequest{
		RecordID:     id,
		Module:       module,
		AttachmentID: attachmentID,
		TokenURL:     b.TokenURL,
		DataCenter:   b.DataCenterURL,
	})
}
