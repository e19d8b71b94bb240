package corpus

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qerrors "github.com/poliacredita/qdigest/internal/errors"
)

type fakeS3 struct {
	body  string
	err   error
	input *s3.GetObjectInput
}

func (f *fakeS3) GetObjectWithContext(_ aws.Context, in *s3.GetObjectInput, _ ...request.Option) (*s3.GetObjectOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(f.body))}, nil
}

func writeCorpus(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadKeepsShortCorpusUnmodified(t *testing.T) {
	path := writeCorpus(t, "debt.txt", "  BUG [CRITICAL] foo.py:12 null deref\n\n")

	c, err := NewReader(70000, nil).Read(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "BUG [CRITICAL] foo.py:12 null deref", c.Text)
	assert.False(t, c.Truncated)
	assert.Equal(t, c.OriginalLength, c.Length)
}

func TestReadTruncatesToPrefix(t *testing.T) {
	content := strings.Repeat("ñ", 8) + "tail"
	path := writeCorpus(t, "debt.txt", content)

	c, err := NewReader(10, nil).Read(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("ñ", 8)+"ta", c.Text)
	assert.Equal(t, 10, c.Length)
	assert.Equal(t, 12, c.OriginalLength)
	assert.True(t, c.Truncated)
}

func TestReadFailures(t *testing.T) {
	testCases := []struct {
		name     string
		location func(t *testing.T) string
		want     error
	}{
		{
			name:     "missing file",
			location: func(t *testing.T) string { return filepath.Join(t.TempDir(), "absent.txt") },
			want:     qerrors.ErrNotFound,
		},
		{
			name:     "whitespace only",
			location: func(t *testing.T) string { return writeCorpus(t, "debt.txt", " \n\t \n") },
			want:     qerrors.ErrEmpty,
		},
		{
			name:     "sarif without results",
			location: func(t *testing.T) string { return writeCorpus(t, "scan.sarif", `{"version":"2.1.0","runs":[]}`) },
			want:     qerrors.ErrEmpty,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewReader(100, nil).Read(context.Background(), tc.location(t))
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestReadFlattensSARIF(t *testing.T) {
	path := writeCorpus(t, "scan.sarif", `{"version":"2.1.0","runs":[{"tool":{"driver":{"name":"x"}},"results":[
		{"ruleId":"r1","level":"error","message":{"text":"boom"},
		 "locations":[{"physicalLocation":{"artifactLocation":{"uri":"a.go"},"region":{"startLine":3}}}]}]}]}`)

	c, err := NewReader(100, nil).Read(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "ERROR [r1] a.go:3 boom", c.Text)
}

func TestReadFromS3(t *testing.T) {
	fake := &fakeS3{body: "VULNERABILITY [BLOCKER] app.js:1 eval"}

	c, err := NewReader(100, nil, WithObjectGetter(fake)).Read(context.Background(), "s3://reports/ci/debt.txt")
	require.NoError(t, err)
	assert.Equal(t, "VULNERABILITY [BLOCKER] app.js:1 eval", c.Text)
	assert.Equal(t, "reports", aws.StringValue(fake.input.Bucket))
	assert.Equal(t, "ci/debt.txt", aws.StringValue(fake.input.Key))
}

func TestReadFromS3Errors(t *testing.T) {
	missing := &fakeS3{err: awserr.New(s3.ErrCodeNoSuchKey, "no such key", nil)}
	_, err := NewReader(100, nil, WithObjectGetter(missing)).Read(context.Background(), "s3://reports/debt.txt")
	assert.ErrorIs(t, err, qerrors.ErrNotFound)

	denied := &fakeS3{err: awserr.New("AccessDenied", "denied", nil)}
	_, err = NewReader(100, nil, WithObjectGetter(denied)).Read(context.Background(), "s3://reports/debt.txt")
	assert.ErrorIs(t, err, qerrors.ErrTransport)
}

func TestParseS3Location(t *testing.T) {
	bucket, key, err := ParseS3Location("s3://bucket/a/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "bucket", bucket)
	assert.Equal(t, "a/b.txt", key)

	_, _, err = ParseS3Location("s3://bucket")
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "", Truncate("abc", 0))
	assert.Equal(t, "日本", Truncate("日本語", 2))
}
