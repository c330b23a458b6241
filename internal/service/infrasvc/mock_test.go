package infrasvc

import (
	"context"
	"sync"

	"cloud-ingest/internal/infra"
)

// fakeSpanner records calls and serves a canned database status.
type fakeSpanner struct {
	mu     sync.Mutex
	calls  []string
	status infra.ResourceStatus
	err    error
}

func (f *fakeSpanner) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeSpanner) CreateInstance(context.Context) error {
	f.record("create-instance")
	return f.err
}

func (f *fakeSpanner) CreateDatabase(context.Context) error {
	f.record("create-database")
	return f.err
}

func (f *fakeSpanner) DeleteInstance(context.Context) error {
	f.record("delete-instance")
	return f.err
}

func (f *fakeSpanner) DatabaseStatus(context.Context) (infra.ResourceStatus, error) {
	return f.status, f.err
}

// fakePubSub records created and deleted topics and serves per-topic
// statuses.
type fakePubSub struct {
	mu       sync.Mutex
	created  []string
	deleted  []string
	statuses map[string]infra.ResourceStatus
	err      error
}

func (f *fakePubSub) CreateTopicAndSubscriptions(_ context.Context, spec infra.TopicSpec) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, spec.Topic)
	return f.err
}

func (f *fakePubSub) DeleteTopicAndSubscriptions(_ context.Context, topic string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, topic)
	return f.err
}

func (f *fakePubSub) TopicStatus(_ context.Context, spec infra.TopicSpec) (infra.ResourceStatus, error) {
	if f.err != nil {
		return infra.StatusUnknown, f.err
	}
	if st, ok := f.statuses[spec.Topic]; ok {
		return st, nil
	}
	return infra.StatusUnknown, nil
}

// fakeFunctions records function calls and serves a canned status.
type fakeFunctions struct {
	mu     sync.Mutex
	calls  []string
	srcDir string
	topic  string
	status infra.ResourceStatus
	err    error
}

func (f *fakeFunctions) CreateFunction(_ context.Context, name, srcDir, topic, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "create:"+name)
	f.srcDir = srcDir
	f.topic = topic
	return f.err
}

func (f *fakeFunctions) DeleteFunction(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "delete:"+name)
	return f.err
}

func (f *fakeFunctions) FunctionStatus(context.Context, string) (infra.ResourceStatus, error) {
	return f.status, f.err
}

// fakeCompute records VM calls and serves a canned status.
type fakeCompute struct {
	mu     sync.Mutex
	calls  []string
	image  string
	cmd    string
	args   []string
	status infra.ResourceStatus
	err    error
}

func (f *fakeCompute) CreateInstance(_ context.Context, name, image, cmd string, args []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "create:"+name)
	f.image, f.cmd, f.args = image, cmd, args
	return f.err
}

func (f *fakeCompute) DeleteInstance(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "delete:"+name)
	return f.err
}

func (f *fakeCompute) InstanceStatus(context.Context, string) (infra.ResourceStatus, error) {
	return f.status, f.err
}
