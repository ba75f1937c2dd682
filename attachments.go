package apphistory

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/easypluginz/apphistory/internal/history"
	"github.com/easypluginz/apphistory/internal/types"
)

// ListAttachments returns the files attached to a history record.
func (c *Client) ListAttachments(ctx context.Context, historyID string) ([]Attachment, error) {
	return c.bridge.ListAttachments(ctx, history.HistoryModule, historyID)
}

// UploadAttachment attaches a file to a history record and returns the
// attachment id.
func (c *Client) UploadAttachment(ctx context.Context, historyID string, up AttachmentUpload) (string, error) {
	return c.bridge.UploadAttachment(ctx, history.HistoryModule, historyID, up)
}

// DeleteAttachment removes a file from a history record.
func (c *Client) DeleteAttachment(ctx context.Context, historyID, attachmentID string) error {
	return c.bridge.DeleteAttachment(ctx, history.HistoryModule, historyID, attachmentID)
}

// DownloadAttachment fetches attachment bytes through the download proxy,
// returning the content and its media type.
func (c *Client) DownloadAttachment(ctx context.Context, historyID, attachmentID string) ([]byte, string, error) {
	if c.cfg.DownloadProxyURL == "" {
		return nil, "", fmt.Errorf("download attachment: no download proxy configured")
	}
	return c.bridge.DownloadAttachment(ctx, history.HistoryModule, historyID, attachmentID)
}

// uploadAttachmentBestEffort uploads after a successful record write. The
// record mutation already succeeded, so a failed upload only logs.
func (c *Client) uploadAttachmentBestEffort(ctx context.Context, historyID string, up *types.AttachmentUpload) {
	if up == nil {
		return
	}
	if _, err := c.bridge.UploadAttachment(ctx, history.HistoryModule, historyID, *up); err != nil {
		log.Warn().Err(err).Str("historyId", historyID).Str("file", up.FileName).
			Msg("apphistory: attachment upload failed")
	}
}

// replaceAttachmentBestEffort swaps the record's attachment: the existing
// one is deleted first so the record never carries two.
func (c *Client) replaceAttachmentBestEffort(ctx context.Context, historyID string, up *types.AttachmentUpload) {
	if up == nil {
		return
	}
	existing, err := c.bridge.ListAttachments(ctx, history.HistoryModule, historyID)
	if err != nil {
		log.Warn().Err(err).Str("historyId", historyID).Msg("apphistory: attachment listing failed before replace")
	} else if len(existing) > 0 {
		if err := c.bridge.DeleteAttachment(ctx, history.HistoryModule, historyID, existing[0].ID); err != nil {
			log.Warn().Err(err).Str("historyId", historyID).Str("attachmentId", existing[0].ID).
				Msg("apphistory: stale attachment not deleted")
		}
	}
	c.uploadAttachmentBestEffort(ctx, historyID, up)
}
