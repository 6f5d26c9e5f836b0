package s3

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	key    string
	bucket string
	length int64
	body   string
	err    error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.bucket = aws.ToString(in.Bucket)
	f.key = aws.ToString(in.Key)
	f.length = aws.ToInt64(in.ContentLength)
	f.body = string(data)
	return &s3.PutObjectOutput{}, nil
}

func TestPutObject_KnownSize(t *testing.T) {
	fake := &fakeS3{}
	b := newWithClient(fake, "mirror", "/runs/today/")

	require.NoError(t, b.PutObject(context.Background(), "Proj/A/a.pdf", strings.NewReader("abc"), 3))
	assert.Equal(t, "mirror", fake.bucket)
	assert.Equal(t, "runs/today/Proj/A/a.pdf", fake.key)
	assert.Equal(t, int64(3), fake.length)
	assert.Equal(t, "abc", fake.body)
}

func TestPutObject_UnknownSizeIsSpooled(t *testing.T) {
	fake := &fakeS3{}
	b := newWithClient(fake, "mirror", "")

	require.NoError(t, b.PutObject(context.Background(), "Proj/b.txt", strings.NewReader("hello world"), -1))
	assert.Equal(t, "Proj/b.txt", fake.key)
	assert.Equal(t, int64(11), fake.length)
	assert.Equal(t, "hello world", fake.body)
}

func TestPutObject_Error(t *testing.T) {
	b := newWithClient(&fakeS3{err: errors.New("access denied")}, "mirror", "")
	err := b.PutObject(context.Background(), "k", strings.NewReader("x"), 1)
	assert.ErrorContains(t, err, "access denied")
}

func TestLocationAndMakeDir(t *testing.T) {
	b := newWithClient(&fakeS3{}, "mirror", "pre")
	assert.Equal(t, "s3://mirror/pre/Proj/A", b.Location("Proj/A"))
	assert.NoError(t, b.MakeDir(context.Background(), "Proj/A"))
	assert.Equal(t, "s3", b.Type())
}

// streamOnly hides any Seek method of the wrapped reader.
type streamOnly struct{ r io.Reader }

func (s streamOnly) Read(p []byte) (int, error) { return s.r.Read(p) }

type recordedPut struct {
	method string
	path   string
	body   string
}

func newS3Server(t *testing.T) (*httptest.Server, func() []recordedPut) {
	t.Helper()
	var mu sync.Mutex
	var puts []recordedPut
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		mu.Lock()
		puts = append(puts, recordedPut{method: r.Method, path: r.URL.Path, body: string(data)})
		mu.Unlock()
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []recordedPut {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedPut(nil), puts...)
	}
}

func TestPutObject_PlainHTTPEndpoint(t *testing.T) {
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
	srv, recorded := newS3Server(t)

	b, err := NewBackend(context.Background(), BackendConfig{
		Endpoint:  srv.URL,
		Bucket:    "bkt",
		Region:    "us-east-1",
		AccessKey: "a",
		SecretKey: "b",
	})
	require.NoError(t, err)

	tests := []struct {
		name string
		key  string
		body io.Reader
		size int64
	}{
		{"stream of known size", "Proj/a.pdf", streamOnly{strings.NewReader("hello")}, 5},
		{"tee of unknown size", "Proj/b.pdf", io.TeeReader(strings.NewReader("hello"), io.Discard), -1},
		{"seekable", "Proj/c.pdf", strings.NewReader("hello"), 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, b.PutObject(context.Background(), tt.key, tt.body, tt.size))
		})
	}

	puts := recorded()
	require.Len(t, puts, len(tests))
	for i, tt := range tests {
		assert.Equal(t, http.MethodPut, puts[i].method)
		assert.Equal(t, "/bkt/"+tt.key, puts[i].path)
		assert.Equal(t, "hello", puts[i].body)
	}
}

func TestPutObject_ShortStream(t *testing.T) {
	fake := &fakeS3{}
	b := newWithClient(fake, "mirror", "")

	err := b.PutObject(context.Background(), "k", streamOnly{strings.NewReader("abc")}, 10)
	assert.ErrorContains(t, err, "expected 10")
	assert.Empty(t, fake.key)
}
