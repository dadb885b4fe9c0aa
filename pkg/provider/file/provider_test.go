package file

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/bucketwalk/pkg/provider"
)

func writeKeys(t *testing.T, root, bucket string, keys ...string) {
	t.Helper()
	for _, k := range keys {
		full := filepath.Join(root, bucket, filepath.FromSlash(k))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(k), 0o644))
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"missing root", Config{Bucket: "b"}, "root dir is required"},
		{"missing bucket", Config{RootDir: "/tmp"}, "bucket is required"},
		{"bucket with slash", Config{RootDir: "/tmp", Bucket: "a/b"}, "invalid bucket name"},
		{"dot dot", Config{RootDir: "/tmp", Bucket: ".."}, "invalid bucket name"},
		{"valid", Config{RootDir: "/tmp", Bucket: "big-bucket"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestListWithDelimiter_GroupsCommonPrefixes(t *testing.T) {
	root := t.TempDir()
	writeKeys(t, root, "big-bucket", "0/file_0", "100/file_150", "100/deep/file_x", "top.txt")

	p, err := New(Config{RootDir: root, Bucket: "big-bucket"})
	require.NoError(t, err)

	res, err := p.ListWithDelimiter(context.Background(), provider.ListWithDelimiterOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"0/", "100/"}, res.CommonPrefixes)
	require.Len(t, res.Objects, 1)
	assert.Equal(t, "top.txt", res.Objects[0].Key)
	assert.Equal(t, int64(len("top.txt")), res.Objects[0].Size)

	res, err = p.ListWithDelimiter(context.Background(), provider.ListWithDelimiterOptions{Prefix: "100/"})
	require.NoError(t, err)
	assert.Equal(t, []string{"100/deep/"}, res.CommonPrefixes)
	require.Len(t, res.Objects, 1)
	assert.Equal(t, "100/file_150", res.Objects[0].Key)
	assert.False(t, res.IsTruncated)
}

func TestListWithDelimiter_PartialSegmentPrefix(t *testing.T) {
	root := t.TempDir()
	writeKeys(t, root, "b", "logs/app-1/x", "logs/app-2/y", "logs/db/z")

	p, err := New(Config{RootDir: root, Bucket: "b"})
	require.NoError(t, err)

	res, err := p.ListWithDelimiter(context.Background(), provider.ListWithDelimiterOptions{Prefix: "logs/app"})
	require.NoError(t, err)
	assert.Equal(t, []string{"logs/app-1/", "logs/app-2/"}, res.CommonPrefixes)
	assert.Empty(t, res.Objects)
}

func TestListWithDelimiter_Pagination(t *testing.T) {
	root := t.TempDir()
	writeKeys(t, root, "b", "a/1", "b/1", "c", "d", "e/1")

	p, err := New(Config{RootDir: root, Bucket: "b", MaxKeys: 2})
	require.NoError(t, err)

	var names []string
	token := ""
	pages := 0
	for {
		res, err := p.ListWithDelimiter(context.Background(), provider.ListWithDelimiterOptions{ContinuationToken: token})
		require.NoError(t, err)
		pages++
		names = append(names, res.CommonPrefixes...)
		for _, o := range res.Objects {
			names = append(names, o.Key)
		}
		if !res.IsTruncated {
			break
		}
		token = res.ContinuationToken
	}

	assert.Equal(t, 3, pages)
	assert.ElementsMatch(t, []string{"a/", "b/", "c", "d", "e/"}, names)
}

func TestListWithDelimiter_MissingBucket(t *testing.T) {
	p, err := New(Config{RootDir: t.TempDir(), Bucket: "nope"})
	require.NoError(t, err)

	_, err = p.ListWithDelimiter(context.Background(), provider.ListWithDelimiterOptions{})
	require.Error(t, err)
	assert.True(t, provider.IsBucketNotFound(err))
}

func TestListWithDelimiter_MissingPrefixIsEmpty(t *testing.T) {
	root := t.TempDir()
	writeKeys(t, root, "b", "a/1")

	p, err := New(Config{RootDir: root, Bucket: "b"})
	require.NoError(t, err)

	res, err := p.ListWithDelimiter(context.Background(), provider.ListWithDelimiterOptions{Prefix: "zzz/"})
	require.NoError(t, err)
	assert.Empty(t, res.Objects)
	assert.Empty(t, res.CommonPrefixes)
}

func TestBucketLifecycleAndPut(t *testing.T) {
	ctx := context.Background()
	p, err := New(Config{RootDir: t.TempDir(), Bucket: "fresh"})
	require.NoError(t, err)

	ok, err := p.BucketExists(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, p.CreateBucket(ctx))
	ok, err = p.BucketExists(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, p.PutObject(ctx, "100/file_150", strings.NewReader("abc"), 3))

	res, err := p.ListWithDelimiter(ctx, provider.ListWithDelimiterOptions{Prefix: "100/"})
	require.NoError(t, err)
	require.Len(t, res.Objects, 1)
	assert.Equal(t, "100/file_150", res.Objects[0].Key)
	assert.Equal(t, int64(3), res.Objects[0].Size)
}

func TestPutObject_ConfinedToBucket(t *testing.T) {
	root := t.TempDir()
	p, err := New(Config{RootDir: root, Bucket: "b"})
	require.NoError(t, err)

	require.NoError(t, p.PutObject(context.Background(), "../../escape", strings.NewReader("x"), 1))

	_, err = os.Stat(filepath.Join(root, "b", "escape"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(root, "escape"))
	assert.True(t, os.IsNotExist(err))
}
