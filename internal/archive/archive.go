// Package archive uploads rendered artifacts to an S3 bucket.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/hashicorp/go-hclog"

	"github.com/poliacredita/qdigest/internal/config"
	qerrors "github.com/poliacredita/qdigest/internal/errors"
)

// Uploader is the subset of s3manager.Uploader used here.
type Uploader interface {
	UploadWithContext(ctx aws.Context, input *s3manager.UploadInput, opts ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error)
}

// File is one artifact to upload.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

type Archiver struct {
	bucket   string
	prefix   string
	uploader Uploader
	logger   hclog.Logger
}

// New creates an archiver for cfg.Bucket backed by the default AWS credential chain.
func New(cfg config.Archive, logger hclog.Logger) (*Archiver, error) {
	awsCfg := &aws.Config{}
	if cfg.Region != "" {
		awsCfg.Region = aws.String(cfg.Region)
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, qerrors.New(qerrors.KindConfiguration, "archive.session", err)
	}
	return NewWithUploader(cfg, s3manager.NewUploader(sess), logger), nil
}

// NewWithUploader creates an archiver around an existing uploader.
func NewWithUploader(cfg config.Archive, uploader Uploader, logger hclog.Logger) *Archiver {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Archiver{
		bucket:   cfg.Bucket,
		prefix:   strings.Trim(cfg.Prefix, "/"),
		uploader: uploader,
		logger:   logger.Named("archive"),
	}
}

// Key returns the object key of name for the given run.
func (a *Archiver) Key(runID, name string) string {
	return path.Join(a.prefix, runID, path.Base(name))
}

// Archive uploads every file under <prefix>/<runID>/ and returns the object locations.
// It stops at the first failed upload.
func (a *Archiver) Archive(ctx context.Context, runID string, files ...File) ([]string, error) {
	const op = "archive.upload"

	locations := make([]string, 0, len(files))
	for _, f := range files {
		input := &s3manager.UploadInput{
			Bucket: aws.String(a.bucket),
			Key:    aws.String(a.Key(runID, f.Name)),
			Body:   bytes.NewReader(f.Data),
		}
		if f.ContentType != "" {
			input.ContentType = aws.String(f.ContentType)
		}

		out, err := a.uploader.UploadWithContext(ctx, input)
		if err != nil {
			return locations, qerrors.New(qerrors.KindTransport, op, fmt.Errorf("s3://%s/%s: %w", a.bucket, *input.Key, err))
		}
		a.logger.Debug("artifact uploaded", "location", out.Location)
		locations = append(locations, out.Location)
	}
	return locations, nil
}
