// Package corpus loads the static-analysis dump that the prioritization run submits to the model.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/hashicorp/go-hclog"

	qerrors "github.com/poliacredita/qdigest/internal/errors"
	"github.com/poliacredita/qdigest/internal/findings"
	"github.com/poliacredita/qdigest/internal/sarif"
)

const op = "corpus.read"

// ObjectGetter is the subset of the S3 API used to fetch a corpus from a bucket.
type ObjectGetter interface {
	GetObjectWithContext(ctx aws.Context, input *s3.GetObjectInput, opts ...request.Option) (*s3.GetObjectOutput, error)
}

// Reader loads an IssueCorpus from a local path or an s3://bucket/key location.
type Reader struct {
	maxChars int
	region   string
	s3       ObjectGetter
	logger   hclog.Logger
}

// Option configures a Reader.
type Option func(*Reader)

// WithObjectGetter sets the S3 client used for s3:// locations.
func WithObjectGetter(g ObjectGetter) Option {
	return func(r *Reader) { r.s3 = g }
}

// WithRegion sets the region of the lazily created S3 client.
func WithRegion(region string) Option {
	return func(r *Reader) { r.region = region }
}

// NewReader creates a Reader that caps the corpus at maxChars characters.
func NewReader(maxChars int, logger hclog.Logger, opts ...Option) *Reader {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	r := &Reader{maxChars: maxChars, logger: logger}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Read loads the artifact at location. It fails with NotFound when the artifact does not exist and with
// Empty when it trims to nothing. Content beyond the cap is dropped, keeping the prefix.
func (r *Reader) Read(ctx context.Context, location string) (*findings.IssueCorpus, error) {
	raw, err := r.load(ctx, location)
	if err != nil {
		return nil, err
	}

	if isSARIF(location) {
		report, err := sarif.Parse(raw)
		if err != nil {
			return nil, qerrors.New(qerrors.KindEmpty, op, fmt.Errorf("%s: %w", location, err))
		}
		raw = []byte(sarif.Flatten(report))
	}

	text := strings.TrimSpace(string(raw))
	if text == "" {
		return nil, qerrors.Newf(qerrors.KindEmpty, op, "issue corpus %q is empty", location)
	}

	original := utf8.RuneCountInString(text)
	corpus := &findings.IssueCorpus{
		Text:           text,
		Length:         original,
		OriginalLength: original,
		Source:         location,
	}
	if r.maxChars > 0 && original > r.maxChars {
		corpus.Text = Truncate(text, r.maxChars)
		corpus.Length = r.maxChars
		corpus.Truncated = true
		r.logger.Warn("issue corpus exceeds the input cap, keeping the prefix",
			"source", location, "original_chars", original, "kept_chars", r.maxChars)
	}

	r.logger.Debug("issue corpus loaded", "source", location, "chars", corpus.Length)
	return corpus, nil
}

// Truncate returns the first max characters of text.
func Truncate(text string, max int) string {
	if max <= 0 {
		return ""
	}
	n := 0
	for i := range text {
		if n == max {
			return text[:i]
		}
		n++
	}
	return text
}

func (r *Reader) load(ctx context.Context, location string) ([]byte, error) {
	if strings.HasPrefix(location, "s3://") {
		return r.loadS3(ctx, location)
	}

	data, err := os.ReadFile(location)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, qerrors.New(qerrors.KindNotFound, op, err)
		}
		return nil, qerrors.New(qerrors.KindNotFound, op, fmt.Errorf("unable to read %s: %w", location, err))
	}
	return data, nil
}

func (r *Reader) loadS3(ctx context.Context, location string) ([]byte, error) {
	bucket, key, err := ParseS3Location(location)
	if err != nil {
		return nil, qerrors.New(qerrors.KindConfiguration, op, err)
	}

	if r.s3 == nil {
		sess, err := session.NewSession(&aws.Config{Region: aws.String(r.region)})
		if err != nil {
			return nil, qerrors.New(qerrors.KindTransport, op, fmt.Errorf("unable to create s3 session: %w", err))
		}
		r.s3 = s3.New(sess)
	}

	out, err := r.s3.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) {
			switch aerr.Code() {
			case s3.ErrCodeNoSuchKey, s3.ErrCodeNoSuchBucket, "NotFound":
				return nil, qerrors.New(qerrors.KindNotFound, op, err)
			}
		}
		return nil, qerrors.New(qerrors.KindTransport, op, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, qerrors.New(qerrors.KindTransport, op, err)
	}
	return data, nil
}

// ParseS3Location splits s3://bucket/key into its parts.
func ParseS3Location(location string) (string, string, error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", "", fmt.Errorf("invalid s3 location %q: %w", location, err)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if u.Scheme != "s3" || u.Host == "" || key == "" {
		return "", "", fmt.Errorf("invalid s3 location %q, expected s3://bucket/key", location)
	}
	return u.Host, key, nil
}

func isSARIF(location string) bool {
	return strings.EqualFold(filepath.Ext(location), ".sarif")
}
