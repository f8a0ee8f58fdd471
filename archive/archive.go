// Package archive keeps a copy of every downloaded report file in Cloud Storage.
package archive

import (
	"bytes"
	"context"
	"io"
	"path"

	"wmorders/utils/logger"

	"cloud.google.com/go/storage"
)

// ObjectName is where the report of reportDate is stored under prefix
func ObjectName(prefix string, reportDate string) string {
	return path.Join(prefix, "recon", reportDate+".zip")
}

// GCS writes report files to a bucket
type GCS struct {
	client *storage.Client
	bucket *storage.BucketHandle
	prefix string
}

// NewGCS connects with default credentials
func NewGCS(ctx context.Context, bucket string, prefix string) (*GCS, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, logger.ErrFmt("[archive.NewGCS] %w", err)
	}
	return &GCS{client: client, bucket: client.Bucket(bucket), prefix: prefix}, nil
}

// Put uploads the raw report and returns the object name
func (g *GCS) Put(ctx context.Context, reportDate string, data []byte) (string, error) {
	name := ObjectName(g.prefix, reportDate)
	w := g.bucket.Object(name).NewWriter(ctx)
	w.ContentType = "application/zip"
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		w.Close()
		return "", logger.ErrFmt("[archive.Put] "+name+": %w", err)
	}
	if err := w.Close(); err != nil {
		return "", logger.ErrFmt("[archive.Put] "+name+": %w", err)
	}
	logger.InfoFmt("[archive.Put] %d bytes to %s", len(data), name)
	return name, nil
}

// Close the storage client
func (g *GCS) Close() error {
	return g.client.Close()
}
