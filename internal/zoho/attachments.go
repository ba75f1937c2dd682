package zoho

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	apperrors "github.com/easypluginz/apphistory/internal/errors"
	"github.com/easypluginz/apphistory/internal/types"
)

// ListAttachments returns the files attached to a record.
func ListAttachments(ctx context.Context, httpClient *http.Client, baseURL, module, id string) ([]types.Attachment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := types.ValidateModule(module); err != nil {
		return nil, err
	}
	if err := types.ValidateIDPresent(id, "recordId"); err != nil {
		return nil, err
	}
	reqURL := fmt.Sprintf("%s%s/%s/%s/Attachments?fields=id,File_Name,$file_id", baseURL, apiPrefix, module, id)
	httpReq, err := newRequest(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return nil, apperrors.Network("list attachments", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp, "list attachments")
	}

	var env Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, err
	}
	raws := env.AttachmentRecords()
	out := make([]types.Attachment, 0, len(raws))
	for _, raw := range raws {
		var a types.Attachment
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// UploadAttachment attaches a file to a record and returns the attachment
// id.
func UploadAttachment(ctx context.Context, httpClient *http.Client, baseURL, module, id string, up types.AttachmentUpload) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := types.ValidateModule(module); err != nil {
		return "", err
	}
	if err := types.ValidateIDPresent(id, "recordId"); err != nil {
		return "", err
	}
	if up.FileName == "" {
		return "", fmt.Errorf("fileName must not be empty")
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", up.FileName)
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(up.Content); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	reqURL := fmt.Sprintf("%s%s/%s/%s/Attachments", baseURL, apiPrefix, module, id)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, &buf)
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return "", apperrors.Network("upload attachment", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", statusError(resp, "upload attachment")
	}

	var wr writeResponse
	if err := json.NewDecoder(resp.Body).Decode(&wr); err != nil {
		return "", err
	}
	if len(wr.Data) == 0 {
		return "", fmt.Errorf("upload attachment: response carried no id")
	}
	return wr.Data[0].Details.ID, nil
}

// DeleteAttachment removes a file from a record.
func DeleteAttachment(ctx context.Context, httpClient *http.Client, baseURL, module, id, attachmentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := types.ValidateModule(module); err != nil {
		return err
	}
	if err := types.ValidateIDPresent(id, "recordId"); err != nil {
		return err
	}
	if err := types.ValidateIDPresent(attachmentID, "attachmentId"); err != nil {
		return err
	}
	reqURL := fmt.Sprintf("%s%s/%s/%s/Attachments/%s", baseURL, apiPrefix, module, id, attachmentID)
	httpReq, err := newRequest(ctx, http.MethodDelete, reqURL, nil)
	if err != nil {
		return err
	}
	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return apperrors.Network("delete attachment", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return statusError(resp, "delete attachment")
	}
	return nil
}

// DownloadRequest is the payload the download proxy expects.
type DownloadRequest struct {
	RecordID     string `json:"recordId"`
	Module       string `json:"moduleName"`
	AttachmentID string `json:"attachment_id"`
	TokenURL     string `json:"access_token_url"`
	DataCenter   string `json:"dataCenterUrl"`
}

// DownloadAttachment fetches attachment bytes through the vendor proxy and
// returns them with the response content type.
func DownloadAttachment(ctx context.Context, httpClient *http.Client, proxyURL string, req DownloadRequest) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	if err := types.ValidateIDPresent(proxyURL, "proxyUrl"); err != nil {
		return nil, "", err
	}
	if err := types.ValidateIDPresent(req.AttachmentID, "attachmentId"); err != nil {
		return nil, "", err
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, "", err
	}
	httpReq, err := newRequest(ctx, http.MethodPost, proxyURL, bytes.NewBuffer(body))
	if err != nil {
		return nil, "", err
	}
	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return nil, "", apperrors.Network("download attachment", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", statusError(resp, "download attachment")
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	return data, resp.Header.Get("Content-Type"), nil
}
