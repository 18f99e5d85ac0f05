package mirror

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects map[string][]byte
	etags   map[string]string
	rev     int
	meta    map[string]map[string]string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{
		objects: map[string][]byte{},
		etags:   map[string]string{},
		meta:    map[string]map[string]string{},
	}
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	etag, ok := f.etags[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{ETag: aws.String(etag)}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	key := aws.ToString(in.Key)
	current, exists := f.etags[key]
	if in.IfNoneMatch != nil && exists {
		return nil, &smithy.GenericAPIError{Code: "PreconditionFailed", Message: "At least one of the pre-conditions you specified did not hold"}
	}
	if in.IfMatch != nil && aws.ToString(in.IfMatch) != current {
		return nil, &smithy.GenericAPIError{Code: "PreconditionFailed", Message: "At least one of the pre-conditions you specified did not hold"}
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.rev++
	f.objects[key] = data
	f.etags[key] = fmt.Sprintf(`"etag-%d"`, f.rev)
	f.meta[key] = in.Metadata
	return &s3.PutObjectOutput{ETag: aws.String(f.etags[key])}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	out := &s3.ListObjectsV2Output{}
	for key := range f.objects {
		if in.Prefix == nil || len(key) >= len(*in.Prefix) && key[:len(*in.Prefix)] == *in.Prefix {
			out.Contents = append(out.Contents, types.Object{Key: aws.String(key)})
		}
	}
	return out, nil
}

func TestS3_Upsert(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	store := newS3WithClient(fake, "bucket", "/mirror/")

	info, err := store.FileExists(ctx, "keys.json")
	require.NoError(t, err)
	assert.Nil(t, info)

	require.NoError(t, Upsert(ctx, store, "keys.json", []byte(`[]`), "Update keys.json"))
	assert.Equal(t, []byte(`[]`), fake.objects["mirror/keys.json"])
	assert.Equal(t, "Update+keys.json", fake.meta["mirror/keys.json"]["message"])

	require.NoError(t, Upsert(ctx, store, "keys.json", []byte(`["k"]`), "Update keys.json"))
	assert.Equal(t, []byte(`["k"]`), fake.objects["mirror/keys.json"])
}

func TestS3_Conflicts(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	store := newS3WithClient(fake, "bucket", "")

	require.NoError(t, store.CreateFile(ctx, "a.lua", []byte("1"), "add"))
	assert.ErrorIs(t, store.CreateFile(ctx, "a.lua", []byte("2"), "add"), ErrConflict)

	info, err := store.FileExists(ctx, "a.lua")
	require.NoError(t, err)
	require.NoError(t, store.UpdateFile(ctx, "a.lua", []byte("2"), info.SHA, "update"))

	err = store.UpdateFile(ctx, "a.lua", []byte("3"), info.SHA, "update")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestS3_ListFiles(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	fake.objects["mirror/keys.json"] = nil
	fake.objects["mirror/projects/L1/main.lua"] = nil
	fake.objects["other/file"] = nil

	store := newS3WithClient(fake, "bucket", "mirror")
	paths, err := store.ListFiles(ctx, "main")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"keys.json", "projects/L1/main.lua"}, paths)
}
