package backup

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assetinsight/internal/core"
	"assetinsight/internal/storage/memory"
)

// fakeS3 keeps objects in memory and pages listings two keys at a time.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = b
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(b))}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	start := 0
	if in.ContinuationToken != nil {
		start = sort.SearchStrings(keys, aws.ToString(in.ContinuationToken))
	}
	end := min(start+2, len(keys))
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(end < len(keys))}
	for _, k := range keys[start:end] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	if end < len(keys) {
		out.NextContinuationToken = aws.String(keys[end])
	}
	return out, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3ChannelExportImport(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	ch := NewS3ChannelWithClient(fake, "backups", "/assetinsight/")

	name, err := fixedExchange(seededStore(t)).ExportTo(ctx, ch)
	require.NoError(t, err)
	assert.Contains(t, fake.objects, "assetinsight/"+name)

	dst := memory.New()
	doc, err := NewExchange(dst).ImportFrom(ctx, ch, name)
	require.NoError(t, err)
	assert.Len(t, doc.Categories, 9)

	_, err = ch.Open(ctx, "AssetInsight_1999-01-01_000000.json")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestS3ChannelListAndPrune(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	fake.objects["other/AssetInsight_2024-01-01_000000.json"] = []byte("{}")
	fake.objects["assetinsight/notes.txt"] = []byte("x")
	ch := NewS3ChannelWithClient(fake, "backups", "assetinsight")

	for _, n := range []string{
		"AssetInsight_2024-01-03_000000.json",
		"AssetInsight_2024-01-01_000000.json",
		"AssetInsight_2024-01-04_000000.json",
		"AssetInsight_2024-01-02_000000.json",
		"AssetInsight_2024-01-05_000000.json",
	} {
		require.NoError(t, ch.Put(ctx, n, strings.NewReader("{}")))
	}

	names, err := ch.List(ctx)
	require.NoError(t, err)
	assert.Len(t, names, 5, "listing spans pages and skips foreign keys")

	latest, err := Latest(ctx, ch)
	require.NoError(t, err)
	assert.Equal(t, "AssetInsight_2024-01-05_000000.json", latest)

	removed, err := Prune(ctx, ch, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"AssetInsight_2024-01-01_000000.json",
		"AssetInsight_2024-01-02_000000.json",
		"AssetInsight_2024-01-03_000000.json",
	}, removed)

	names, _ = ch.List(ctx)
	sort.Strings(names)
	assert.Equal(t, []string{"AssetInsight_2024-01-04_000000.json", "AssetInsight_2024-01-05_000000.json"}, names)
	assert.Contains(t, fake.objects, "other/AssetInsight_2024-01-01_000000.json")
}

func TestPruneKeepsAtLeastOne(t *testing.T) {
	ch, err := NewFileChannel(t.TempDir())
	require.NoError(t, err)
	_, err = Prune(context.Background(), ch, 0)
	assert.ErrorIs(t, err, core.ErrValidation)

	require.NoError(t, ch.Remove(context.Background(), "AssetInsight_2024-01-01_000000.json"))
}
