package updater

import (
	"bytes"
	"context"
	"io"

	"cloud.google.com/go/storage"
)

// fakeStore serves release metadata and tarballs from memory.
type fakeStore struct {
	metadata map[string]map[string]string // "bucket/object" -> metadata
	tarballs map[string][]byte            // "bucket/object" -> tar.gz bytes
	err      error

	downloads []string
}

func (s *fakeStore) key(bucket, object string) string {
	return bucket + "/" + object
}

func (s *fakeStore) Metadata(_ context.Context, bucket, object string) (map[string]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	meta, ok := s.metadata[s.key(bucket, object)]
	if !ok {
		return nil, storage.ErrObjectNotExist
	}
	return meta, nil
}

func (s *fakeStore) Download(_ context.Context, bucket, object string) (io.ReadCloser, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.downloads = append(s.downloads, s.key(bucket, object))
	data, ok := s.tarballs[s.key(bucket, object)]
	if !ok {
		return nil, storage.ErrObjectNotExist
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// fakeProcess is a controllable process handle.
type fakeProcess struct {
	pid     int
	alive   bool
	stopped bool
}

func (p *fakeProcess) PID() int { return p.pid }

func (p *fakeProcess) IsAlive() bool { return p.alive }

func (p *fakeProcess) Stop() error {
	p.alive = false
	p.stopped = true
	return nil
}
