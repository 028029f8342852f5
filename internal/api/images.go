package api

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"
	"time"
)

// imageUploadTimeout allows for slow uplinks.
const imageUploadTimeout = time.Minute

// UploadImages uploads files as one multipart request and returns the names
// the server stored them under, in order.
func (c *Client) UploadImages(ctx context.Context, files []ImageFile) Result[UploadedImages] {
	if len(files) == 0 {
		return Fail[UploadedImages](&Problem{Kind: KindRejected, Err: fmt.Errorf("no files to upload")})
	}
	body, contentType, err := encodeImages(files)
	if err != nil {
		return Fail[UploadedImages](&Problem{Kind: KindUnknown, Err: err})
	}
	return call(ctx, c, Request{
		Method:      http.MethodPost,
		Path:        "/Images",
		RawBody:     body,
		ContentType: contentType,
		Timeout:     imageUploadTimeout,
	}, func(resp *http.Response) (UploadedImages, error) {
		names, err := decodeJSON[[]string](resp)
		return UploadedImages{Names: names}, err
	})
}

func encodeImages(files []ImageFile) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for i, f := range files {
		name := filepath.Base(strings.TrimSpace(f.Name))
		if name == "" || name == "." || name == "/" {
			name = fmt.Sprintf("image-%d", i+1)
		}
		contentType := f.ContentType
		if contentType == "" {
			contentType = http.DetectContentType(f.Data)
		}
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename=%q`, name))
		header.Set("Content-Type", contentType)
		part, err := w.CreatePart(header)
		if err != nil {
			return nil, "", fmt.Errorf("create multipart part: %w", err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", fmt.Errorf("write multipart part: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart body: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
