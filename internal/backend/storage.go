package backend

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/receiptwise/receiptwise/internal/apperr"
)

// UploadLimit is applied client-side before any bytes leave the device.
// Zero means no limit.
type UploadLimit int64

// Upload writes data into the named storage bucket at path and returns the
// public URL of the object.
func (c *Client) Upload(ctx context.Context, bucket, path string, data []byte, contentType string, limit UploadLimit) (string, error) {
	if limit > 0 && int64(len(data)) > int64(limit) {
		return "", apperr.Newf(apperr.KindFile,
			"file is %.1f MB, the limit is %.1f MB", mb(int64(len(data))), mb(int64(limit)))
	}

	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	objectPath := "/storage/v1/object/" + bucket + "/" + path

	if err := c.do(ctx, http.MethodPost, objectPath, nil, nil, bytes.NewReader(data), contentType, nil); err != nil {
		return "", fmt.Errorf("uploading %s: %w", path, err)
	}

	return c.PublicURL(bucket, path), nil
}

// Remove deletes an object from the named bucket.
func (c *Client) Remove(ctx context.Context, bucket, path string) error {
	if err := c.do(ctx, http.MethodDelete, "/storage/v1/object/"+bucket+"/"+path, nil, nil, nil, "", nil); err != nil {
		return fmt.Errorf("removing %s: %w", path, err)
	}

	return nil
}

// PublicURL returns the unauthenticated URL of an object in a public
// bucket.
func (c *Client) PublicURL(bucket, path string) string {
	return c.baseURL + "/storage/v1/object/public/" + bucket + "/" + path
}

func mb(n int64) float64 {
	return float64(n) / (1024 * 1024)
}
