// Package infra provisions and inspects the GCP resources the ingest
// pipeline runs on: the Spanner instance and database, the Pub/Sub topics
// the DCP and agents exchange tasks over, the GCS-to-BigQuery importer
// cloud function, and the GCE VM hosting the DCP container.
package infra

// ResourceStatus is the deployment state of one infrastructure resource.
type ResourceStatus string

const (
	StatusRunning   ResourceStatus = "RUNNING"
	StatusDeploying ResourceStatus = "DEPLOYING"
	StatusDeleting  ResourceStatus = "DELETING"
	StatusFailed    ResourceStatus = "FAILED"
	StatusNotFound  ResourceStatus = "NOT_FOUND"
	StatusUnknown   ResourceStatus = "UNKNOWN"
)

// Resource names of the ingest deployment. Every project gets one deployment
// under these fixed names.
const (
	SpannerInstance = "cloud-ingest-spanner-instance"
	SpannerDatabase = "cloud-ingest-database"

	LoadBQFunction           = "cloud-ingest-gcs_to_bq_importer"
	LoadBQFunctionEntrypoint = "GcsToBq"
	LoadBQFunctionTimeout    = "540s"

	DCPInstance       = "cloud-ingest-dcp"
	DCPContainerImage = "mbassiouny/cloud-ingest-dcp:v1"
	DCPCommand        = "/cloud-ingest/dcpmain"
)

// TopicSpec pairs a Pub/Sub topic with its subscriptions and the key it
// reports under in the status aggregate.
type TopicSpec struct {
	Key           string
	Topic         string
	Subscriptions []string
}

// Topics returns the six topic/subscription pairs of a deployment. Each
// topic has a single subscription of the same name. The loadbigquery topic
// additionally triggers the importer cloud function.
func Topics() []TopicSpec {
	names := []struct{ key, topic string }{
		{"list", "cloud-ingest-list"},
		{"listProgress", "cloud-ingest-list-progress"},
		{"copy", "cloud-ingest-copy"},
		{"copyProgress", "cloud-ingest-copy-progress"},
		{"loadBigQuery", "cloud-ingest-loadbigquery"},
		{"loadBigQueryProgress", "cloud-ingest-loadbigquery-progress"},
	}
	specs := make([]TopicSpec, len(names))
	for i, n := range names {
		specs[i] = TopicSpec{
			Key:           n.key,
			Topic:         n.topic,
			Subscriptions: []string{n.topic},
		}
	}
	return specs
}

// LoadBQTopic is the topic the importer cloud function subscribes to.
const LoadBQTopic = "cloud-ingest-loadbigquery"
