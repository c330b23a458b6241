package infra

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/cloudfunctions/v1"
	"google.golang.org/api/option"
)

// LoadBQFunctionRuntime is the runtime of the GCS-to-BigQuery importer.
const LoadBQFunctionRuntime = "nodejs10"

const pubsubPublishEventType = "providers/cloud.pubsub/eventTypes/topic.publish"

// FunctionsBuilder creates and deletes the importer cloud function. The
// function source is zipped and staged in a GCS bucket before creation.
type FunctionsBuilder struct {
	service       *cloudfunctions.Service
	storage       *storage.Client
	projectID     string
	location      string
	stagingBucket string
	logger        *slog.Logger
}

// NewFunctionsBuilder creates a FunctionsBuilder. Staged source archives
// land in stagingBucket, which is created on first use.
func NewFunctionsBuilder(ctx context.Context, projectID, location, stagingBucket string, logger *slog.Logger, opts ...option.ClientOption) (*FunctionsBuilder, error) {
	service, err := cloudfunctions.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create cloud functions service: %w", err)
	}
	storageClient, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &FunctionsBuilder{
		service:       service,
		storage:       storageClient,
		projectID:     projectID,
		location:      location,
		stagingBucket: stagingBucket,
		logger:        logger.With("component", "functions-builder"),
	}, nil
}

// Close releases the storage client.
func (b *FunctionsBuilder) Close() error {
	return b.storage.Close()
}

func (b *FunctionsBuilder) locationPath() string {
	return fmt.Sprintf("projects/%s/locations/%s", b.projectID, b.location)
}

func (b *FunctionsBuilder) functionPath(name string) string {
	return fmt.Sprintf("%s/functions/%s", b.locationPath(), name)
}

// zipDir packs every file under srcDir into a zip archive, with paths
// relative to srcDir.
func zipDir(srcDir string) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	err := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		w, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(w, f)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("zip %q: %w", srcDir, err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zip %q: %w", srcDir, err)
	}
	return buf.Bytes(), nil
}

// stageSource uploads the zipped function source and returns its gs:// URL.
func (b *FunctionsBuilder) stageSource(ctx context.Context, name string, archive []byte) (string, error) {
	bucket := b.storage.Bucket(b.stagingBucket)
	if _, err := bucket.Attrs(ctx); err == storage.ErrBucketNotExist {
		if err := bucket.Create(ctx, b.projectID, nil); err != nil {
			return "", fmt.Errorf("create staging bucket %q: %w", b.stagingBucket, err)
		}
	} else if err != nil {
		return "", fmt.Errorf("check staging bucket %q: %w", b.stagingBucket, err)
	}

	object := name + "_code.zip"
	w := bucket.Object(object).NewWriter(ctx)
	if _, err := w.Write(archive); err != nil {
		w.Close()
		return "", fmt.Errorf("upload function source %q: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("upload function source %q: %w", object, err)
	}
	return fmt.Sprintf("gs://%s/%s", b.stagingBucket, object), nil
}

// CreateFunction zips srcDir, stages it, creates the function triggered by
// the given topic, and polls until it is deployed.
func (b *FunctionsBuilder) CreateFunction(ctx context.Context, name, srcDir, topic, entrypoint, timeout string) error {
	b.logger.Info("creating cloud function", "function", name, "topic", topic)

	archive, err := zipDir(srcDir)
	if err != nil {
		return err
	}
	sourceURL, err := b.stageSource(ctx, name, archive)
	if err != nil {
		return err
	}

	fn := &cloudfunctions.CloudFunction{
		Name:             b.functionPath(name),
		EntryPoint:       entrypoint,
		Runtime:          LoadBQFunctionRuntime,
		SourceArchiveUrl: sourceURL,
		Timeout:          timeout,
		EventTrigger: &cloudfunctions.EventTrigger{
			EventType: pubsubPublishEventType,
			Resource:  fmt.Sprintf("projects/%s/topics/%s", b.projectID, topic),
		},
	}
	if _, err := b.service.Projects.Locations.Functions.Create(b.locationPath(), fn).Context(ctx).Do(); err != nil {
		return fmt.Errorf("create cloud function %q: %w", name, err)
	}

	deadline := time.Now().Add(operationTimeout)
	for time.Now().Before(deadline) {
		res, err := b.service.Projects.Locations.Functions.Get(b.functionPath(name)).Context(ctx).Do()
		if err == nil {
			switch res.Status {
			case "ACTIVE":
				return nil
			case "OFFLINE":
				return fmt.Errorf("cloud function %q failed to deploy", name)
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(operationPollInterval):
		}
	}
	return fmt.Errorf("create cloud function %q timed out after %s", name, operationTimeout)
}

// DeleteFunction deletes the function and its staged source, polling until
// the function is gone. A missing function is not an error.
func (b *FunctionsBuilder) DeleteFunction(ctx context.Context, name string) error {
	path := b.functionPath(name)
	_, err := b.service.Projects.Locations.Functions.Get(path).Context(ctx).Do()
	if isNotFound(err) {
		b.logger.Info("cloud function does not exist, skipping delete", "function", name)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get cloud function %q: %w", name, err)
	}

	if _, err := b.service.Projects.Locations.Functions.Delete(path).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete cloud function %q: %w", name, err)
	}

	deadline := time.Now().Add(operationTimeout)
	for time.Now().Before(deadline) {
		_, err := b.service.Projects.Locations.Functions.Get(path).Context(ctx).Do()
		if isNotFound(err) {
			b.deleteStagedSource(ctx, name)
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(operationPollInterval):
		}
	}
	return fmt.Errorf("delete cloud function %q timed out after %s", name, operationTimeout)
}

// deleteStagedSource removes the staged source archive. Best effort, a
// missing object is ignored.
func (b *FunctionsBuilder) deleteStagedSource(ctx context.Context, name string) {
	object := name + "_code.zip"
	err := b.storage.Bucket(b.stagingBucket).Object(object).Delete(ctx)
	if err != nil && err != storage.ErrObjectNotExist {
		b.logger.Warn("failed to delete staged function source", "object", object, "error", err)
	}
}

// FunctionStatus reports the deployment state of the function.
func (b *FunctionsBuilder) FunctionStatus(ctx context.Context, name string) (ResourceStatus, error) {
	res, err := b.service.Projects.Locations.Functions.Get(b.functionPath(name)).Context(ctx).Do()
	if isNotFound(err) {
		return StatusNotFound, nil
	}
	if err != nil {
		return StatusUnknown, fmt.Errorf("get cloud function %q: %w", name, err)
	}
	switch res.Status {
	case "ACTIVE":
		return StatusRunning, nil
	case "DEPLOY_IN_PROGRESS":
		return StatusDeploying, nil
	case "DELETE_IN_PROGRESS":
		return StatusDeleting, nil
	case "OFFLINE":
		return StatusFailed, nil
	default:
		return StatusUnknown, nil
	}
}
