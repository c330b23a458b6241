package infra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"google.golang.org/api/compute/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Cloud config that starts kubelet on boot so the DCP container is
// restarted if it dies.
const gceCloudConfig = `#cloud-config
runcmd:
- [
      '/usr/bin/kubelet',
      '--allow-privileged=false',
      '--manifest-url=http://metadata.google.internal/computeMetadata/v1/instance/attributes/google-container-manifest',
      '--manifest-url-header=Metadata-Flavor:Google'
  ]
`

const (
	// gceDiskSizeGB is sufficient for the DCP container image.
	gceDiskSizeGB  = 50
	gceMachineType = "n1-standard-1"

	operationPollInterval = 1 * time.Second
	operationTimeout      = 180 * time.Second
)

// GCEBuilder creates and deletes the GCE VM hosting the DCP container. VMs
// run the Container-Optimized OS image and get the container spec through
// instance metadata.
type GCEBuilder struct {
	service   *compute.Service
	projectID string
	zone      string
	logger    *slog.Logger
}

// NewGCEBuilder creates a GCEBuilder for the given project and zone.
func NewGCEBuilder(ctx context.Context, projectID, zone string, logger *slog.Logger, opts ...option.ClientOption) (*GCEBuilder, error) {
	service, err := compute.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create compute service: %w", err)
	}
	return &GCEBuilder{
		service:   service,
		projectID: projectID,
		zone:      zone,
		logger:    logger.With("component", "gce-builder"),
	}, nil
}

// containerManifest is the pod spec kubelet runs on the VM.
func containerManifest(name, image, cmd string, args []string) (string, error) {
	type container struct {
		Name            string   `json:"name"`
		Image           string   `json:"image"`
		ImagePullPolicy string   `json:"imagePullPolicy"`
		Command         []string `json:"command"`
		Args            []string `json:"args"`
	}
	manifest := map[string]interface{}{
		"apiVersion": "v1",
		"kind":       "Pod",
		"metadata":   map[string]string{"name": name},
		"spec": map[string]interface{}{
			"containers": []container{{
				Name:            name,
				Image:           image,
				ImagePullPolicy: "Always",
				Command:         []string{cmd},
				Args:            args,
			}},
		},
	}
	b, err := json.Marshal(manifest)
	if err != nil {
		return "", fmt.Errorf("encode container manifest: %w", err)
	}
	return string(b), nil
}

// CreateInstance creates a VM running the given container image and waits
// for the insert operation to complete.
func (b *GCEBuilder) CreateInstance(ctx context.Context, name, image, cmd string, args []string) error {
	b.logger.Info("creating gce instance", "instance", name, "image", image)

	osImage, err := b.service.Images.GetFromFamily("cos-cloud", "cos-stable").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("resolve cos-stable image: %w", err)
	}
	manifest, err := containerManifest(name, image, cmd, args)
	if err != nil {
		return err
	}

	cloudConfig := gceCloudConfig
	ensureDocker := "true"
	instance := &compute.Instance{
		Name:        name,
		MachineType: fmt.Sprintf("zones/%s/machineTypes/%s", b.zone, gceMachineType),
		Disks: []*compute.AttachedDisk{{
			Boot:       true,
			AutoDelete: true,
			InitializeParams: &compute.AttachedDiskInitializeParams{
				SourceImage: osImage.SelfLink,
				DiskSizeGb:  gceDiskSizeGB,
			},
		}},
		NetworkInterfaces: []*compute.NetworkInterface{{
			Network: "global/networks/default",
			AccessConfigs: []*compute.AccessConfig{{
				Type: "ONE_TO_ONE_NAT",
				Name: "External NAT",
			}},
		}},
		ServiceAccounts: []*compute.ServiceAccount{{
			Email:  "default",
			Scopes: []string{"https://www.googleapis.com/auth/cloud-platform"},
		}},
		Metadata: &compute.Metadata{
			Items: []*compute.MetadataItems{
				{Key: "user-data", Value: &cloudConfig},
				{Key: "gci-ensure-gke-docker", Value: &ensureDocker},
				{Key: "google-container-manifest", Value: &manifest},
			},
		},
	}

	op, err := b.service.Instances.Insert(b.projectID, b.zone, instance).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("insert gce instance %q: %w", name, err)
	}
	return b.waitOperation(ctx, op.Name)
}

// DeleteInstance deletes a VM and waits for the delete operation to
// complete. A missing instance is not an error.
func (b *GCEBuilder) DeleteInstance(ctx context.Context, name string) error {
	op, err := b.service.Instances.Delete(b.projectID, b.zone, name).Context(ctx).Do()
	if isNotFound(err) {
		b.logger.Info("gce instance does not exist, skipping delete", "instance", name)
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete gce instance %q: %w", name, err)
	}
	return b.waitOperation(ctx, op.Name)
}

// InstanceStatus reports the deployment state of a VM.
func (b *GCEBuilder) InstanceStatus(ctx context.Context, name string) (ResourceStatus, error) {
	res, err := b.service.Instances.Get(b.projectID, b.zone, name).Context(ctx).Do()
	if isNotFound(err) {
		return StatusNotFound, nil
	}
	if err != nil {
		return StatusUnknown, fmt.Errorf("get gce instance %q: %w", name, err)
	}
	switch res.Status {
	case "RUNNING":
		return StatusRunning, nil
	case "PROVISIONING", "STAGING":
		return StatusDeploying, nil
	case "STOPPING", "TERMINATED":
		return StatusDeleting, nil
	default:
		return StatusUnknown, nil
	}
}

// waitOperation polls a zone operation until it is DONE or the timeout
// elapses.
func (b *GCEBuilder) waitOperation(ctx context.Context, operation string) error {
	deadline := time.Now().Add(operationTimeout)
	for time.Now().Before(deadline) {
		op, err := b.service.ZoneOperations.Get(b.projectID, b.zone, operation).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("get operation %q: %w", operation, err)
		}
		if op.Status == "DONE" {
			if op.Error != nil && len(op.Error.Errors) > 0 {
				return fmt.Errorf("operation %q failed: %s", operation, op.Error.Errors[0].Message)
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(operationPollInterval):
		}
	}
	return fmt.Errorf("operation %q timed out after %s", operation, operationTimeout)
}

// isNotFound reports whether err is an HTTP 404 from the API.
func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
