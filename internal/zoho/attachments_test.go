package zoho

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/easypluginz/apphistory/internal/types"
)

func TestListAttachments_StatusMessageEnvelope(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/crm/v8/Applications_History/1/Attachments" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"details":{"statusMessage":"{\"data\":[{\"id\":\"a1\",\"File_Name\":\"quote.pdf\"}]}"}}`))
	}))
	defer srv.Close()

	atts, err := ListAttachments(context.Background(), srv.Client(), srv.URL, "Applications_History", "1")
	if err != nil {
		t.Fatalf("ListAttachments: %v", err)
	}
	if len(atts) != 1 || atts[0].FileName != "quote.pdf" {
		t.Fatalf("attachments = %+v", atts)
	}
}

func TestUploadAttachment_Multipart(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer f.Close()
		if hdr.Filename != "quote.pdf" {
			t.Errorf("filename = %q", hdr.Filename)
		}
		content, _ := io.ReadAll(f)
		if string(content) != "pdf-bytes" {
			t.Errorf("content = %q", content)
		}
		_, _ = w.Write([]byte(`{"data":[{"code":"SUCCESS","details":{"id":"att9"}}]}`))
	}))
	defer srv.Close()

	id, err := UploadAttachment(context.Background(), srv.Client(), srv.URL, "Applications_History", "1",
		types.AttachmentUpload{FileName: "quote.pdf", Content: []byte("pdf-bytes")})
	if err != nil {
		t.Fatalf("UploadAttachment: %v", err)
	}
	if id != "att9" {
		t.Fatalf("id = %q, want att9", id)
	}
}

func TestDeleteAttachment(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/crm/v8/Applications_History/1/Attachments/a1" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := DeleteAttachment(context.Background(), srv.Client(), srv.URL, "Applications_History", "1", "a1"); err != nil {
		t.Fatalf("DeleteAttachment: %v", err)
	}
}

func TestDownloadAttachment_ProxyPayload(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req map[string]string
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("bad payload: %v", err)
		}
		want := map[string]string{
			"recordId":         "1",
			"moduleName":       "Applications_History",
			"attachment_id":    "a1",
			"access_token_url": "https://tokens.example.com",
			"dataCenterUrl":    "https://www.zohoapis.com.au",
		}
		for k, v := range want {
			if req[k] != v {
				t.Errorf("%s = %q, want %q", k, req[k], v)
			}
		}
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("binary-pdf"))
	}))
	defer srv.Close()

	data, ct, err := DownloadAttachment(context.Background(), srv.Client(), srv.URL, DownloadRequest{
		RecordID:     "1",
		Module:       "Applications_History",
		AttachmentID: "a1",
		TokenURL:     "https://tokens.example.com",
		DataCenter:   "https://www.zohoapis.com.au",
	})
	if err != nil {
		t.Fatalf("DownloadAttachment: %v", err)
	}
	if string(data) != "binary-pdf" || ct != "application/pdf" {
		t.Fatalf("data = %q, content type = %q", data, ct)
	}
}
