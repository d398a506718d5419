package report

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/strategiq/swot/internal/config"
	"github.com/strategiq/swot/internal/models"
	"github.com/stretchr/testify/require"
)

func sample() models.SwotAnalysis {
	return models.SwotAnalysis{
		PrimaryEntity:      "Acme Corp",
		ComparisonEntities: []string{"Globex", "Initech"},
		Strengths:          []string{"Strong brand", "Wide distribution"},
		Weaknesses:         []string{"High costs", "Slow releases"},
		Opportunities:      []string{"Emerging markets", "Online sales"},
		Threats:            []string{"Price war", "Regulation", "Supply shocks"},
		Analysis:           "Acme leads on brand reach but trails Globex on cost.",
	}
}

func TestRender(t *testing.T) {
	t.Parallel()

	out, err := Render(sample())
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestRender_Content(t *testing.T) {
	t.Parallel()

	out, err := render(sample(), false)
	require.NoError(t, err)

	body := string(out)
	for _, want := range []string{
		"SWOT Analysis Report",
		"Primary Entity: Acme Corp",
		"Compared with: Globex, Initech",
		"Executive Summary",
		"Strengths \\(2\\)",
		"Threats \\(3\\)",
		"Generated by StrategIQ",
		"Page 1",
	} {
		require.Contains(t, body, want)
	}
}

func TestRender_SingleEntityAndLongSummary(t *testing.T) {
	t.Parallel()

	a := sample()
	a.ComparisonEntities = nil
	a.PrimaryEntity = "Café Zürich"
	a.Analysis = strings.Repeat("A long executive summary sentence that wraps. ", 400)

	out, err := render(a, false)
	require.NoError(t, err)
	require.NotContains(t, string(out), "Compared with")
	require.Contains(t, string(out), "Page 2")
}

func TestRenderContext_Expired(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RenderContext(ctx, sample())
	require.ErrorIs(t, err, context.Canceled)
}

func TestFilename(t *testing.T) {
	t.Parallel()

	day := time.Date(2025, 3, 14, 23, 0, 0, 0, time.UTC)

	cases := []struct {
		name  string
		a     models.SwotAnalysis
		value string
	}{
		{
			name:  "single",
			a:     models.SwotAnalysis{PrimaryEntity: "Acme Corp."},
			value: "swot-Acme-Corp-2025-03-14.pdf",
		},
		{
			name:  "one comparison",
			a:     models.SwotAnalysis{PrimaryEntity: "Acme", ComparisonEntities: []string{"Globex, Inc"}},
			value: "swot-Acme-vs-Globex-Inc-2025-03-14.pdf",
		},
		{
			name:  "several comparisons",
			a:     models.SwotAnalysis{PrimaryEntity: "Acme", ComparisonEntities: []string{"Globex", "Initech", "Umbrella"}},
			value: "swot-Acme-vs-Globex-plus2-2025-03-14.pdf",
		},
		{
			name:  "truncated",
			a:     models.SwotAnalysis{PrimaryEntity: "The Quite Remarkably Long Company Name"},
			value: "swot-The-Quite-Remarkably-Long-Comp-2025-03-14.pdf",
		},
		{
			name:  "nothing left",
			a:     models.SwotAnalysis{PrimaryEntity: "!!!"},
			value: "swot-analysis-2025-03-14.pdf",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.value, Filename(tc.a, day))
		})
	}
}

func TestSanitizeNamePart_TrimsTrailingHyphen(t *testing.T) {
	t.Parallel()

	// 29 characters then a space: the cut lands on the hyphen.
	require.Equal(t, strings.Repeat("a", 29), sanitizeNamePart(strings.Repeat("a", 29)+" bcd"))
	require.Equal(t, "a-b", sanitizeNamePart("  a \t b  "))
}

type fakePutter struct {
	mu    sync.Mutex
	calls []*s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, in)
	f.body, _ = io.ReadAll(in.Body)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestArchiver_ObjectKey(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	fp := strings.Repeat("ab", 32)

	a := newArchiver(&fakePutter{}, "bucket", "/reports//swot/", nil)
	require.Equal(t, "reports/swot/2025/03/14/sess-1-abababababab.pdf", a.ObjectKey("sess-1", fp, at))

	a = newArchiver(&fakePutter{}, "bucket", "", nil)
	require.Equal(t, "2025/03/14/sess-1-abc.pdf", a.ObjectKey("sess-1", "abc", at))
}

func TestArchiver_Upload(t *testing.T) {
	t.Parallel()

	putter := &fakePutter{}
	a := newArchiver(putter, "reports", "swot", nil)
	a.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }

	key, err := a.Upload(context.Background(), "sess", strings.Repeat("f", 64), []byte("%PDF-1.3"))
	require.NoError(t, err)
	require.Equal(t, "swot/2025/01/02/sess-ffffffffffff.pdf", key)

	require.Len(t, putter.calls, 1)
	in := putter.calls[0]
	require.Equal(t, "reports", *in.Bucket)
	require.Equal(t, key, *in.Key)
	require.Equal(t, "application/pdf", *in.ContentType)
	require.Equal(t, int64(8), *in.ContentLength)
	require.Equal(t, []byte("%PDF-1.3"), putter.body)

	putter.err = errors.New("access denied")
	_, err = a.Upload(context.Background(), "sess", "f", nil)
	require.ErrorContains(t, err, "access denied")
}

func TestArchiver_UploadAsyncSurvivesCancel(t *testing.T) {
	t.Parallel()

	putter := &fakePutter{}
	a := newArchiver(putter, "reports", "swot", nil)

	ctx, cancel := context.WithCancel(context.Background())
	a.UploadAsync(ctx, "sess", strings.Repeat("c", 64), []byte("%PDF-1.3"))
	cancel()
	a.Wait()

	putter.mu.Lock()
	defer putter.mu.Unlock()
	require.Len(t, putter.calls, 1)
	require.Equal(t, []byte("%PDF-1.3"), putter.body)
}

func TestNewArchiver_RequiresCredentials(t *testing.T) {
	t.Parallel()

	_, err := NewArchiver(config.S3Options{Bucket: "b", Region: "us-east-1"}, nil)
	require.Error(t, err)

	a, err := NewArchiver(config.S3Options{
		Bucket:          "b",
		Region:          "auto",
		AccessKeyID:     "id",
		SecretAccessKey: "secret",
		Endpoint:        "minio.local:9000",
		Prefix:          "swot",
	}, nil)
	require.NoError(t, err)
	require.Equal(t, "swot", a.prefix)
}
