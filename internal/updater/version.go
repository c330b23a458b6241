// Package updater keeps the local transfer agent binary current. It polls
// a GCS release object for a version string in custom metadata, downloads
// and unpacks the release tarball when the version changes, and restarts
// the agent, falling back to the stable release when the agent process is
// not running.
package updater

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
)

// VersionMetadataKey is the custom-metadata key on the release object that
// carries the agent version string.
const VersionMetadataKey = "AgentVersion"

// Source identifies an agent release tarball in GCS.
type Source struct {
	Bucket string
	Object string
}

func (s Source) String() string {
	return fmt.Sprintf("gs://%s/%s", s.Bucket, s.Object)
}

// ParseSource parses a gs://bucket/object URL into a Source.
func ParseSource(raw string) (Source, error) {
	rest, ok := strings.CutPrefix(raw, "gs://")
	if !ok {
		return Source{}, fmt.Errorf("agent source %q is not a gs:// URL", raw)
	}
	bucket, object, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" {
		return Source{}, fmt.Errorf("agent source %q is missing a bucket or object", raw)
	}
	return Source{Bucket: bucket, Object: object}, nil
}

// objectStore is the slice of the GCS API the updater needs.
type objectStore interface {
	Metadata(ctx context.Context, bucket, object string) (map[string]string, error)
	Download(ctx context.Context, bucket, object string) (io.ReadCloser, error)
}

type gcsStore struct {
	client *storage.Client
}

func (s *gcsStore) Metadata(ctx context.Context, bucket, object string) (map[string]string, error) {
	attrs, err := s.client.Bucket(bucket).Object(object).Attrs(ctx)
	if err != nil {
		return nil, err
	}
	return attrs.Metadata, nil
}

func (s *gcsStore) Download(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	return s.client.Bucket(bucket).Object(object).NewReader(ctx)
}

// ReleaseVersion reads the agent version advertised by a release object.
// A missing object or a missing metadata key is not an error; both return
// the empty version.
func (u *Updater) ReleaseVersion(ctx context.Context, src Source) (string, error) {
	meta, err := u.store.Metadata(ctx, src.Bucket, src.Object)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading metadata of %s: %w", src, err)
	}
	return meta[VersionMetadataKey], nil
}
