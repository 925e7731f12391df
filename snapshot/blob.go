package snapshot

import (
	"context"

	"github.com/hupe1980/statemap"
	"github.com/hupe1980/statemap/blobstore"
)

// Put writes the map as a snapshot blob. When a resource controller is
// configured it bounds concurrent snapshot jobs and throttles the upload
// bandwidth.
func Put[V any](ctx context.Context, store blobstore.BlobStore, name string, m *statemap.Map[V], values ValueCodec[V], optFns ...func(*Options)) (int64, error) {
	o := applyOptions(optFns)
	n, err := put(ctx, store, name, m, values, o)
	o.Logger.LogSnapshotSave(name, n, err)
	return n, err
}

func put[V any](ctx context.Context, store blobstore.BlobStore, name string, m *statemap.Map[V], values ValueCodec[V], o Options) (int64, error) {
	if err := o.Controller.AcquireJob(ctx); err != nil {
		return 0, err
	}
	defer o.Controller.ReleaseJob()

	w, err := store.Create(ctx, name)
	if err != nil {
		return 0, err
	}

	n, err := write(ctx, w, m, values, o)
	if err != nil {
		w.Close()
		return 0, err
	}
	if err := w.Close(); err != nil {
		return 0, err
	}
	return n, nil
}

// Get reads a snapshot blob back into a map. See Read for the codec and
// hasher requirements.
func Get[V any](ctx context.Context, store blobstore.BlobStore, name string, values ValueCodec[V], mapOpts ...statemap.Option) (*statemap.Map[V], error) {
	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer blob.Close()

	return Read[V](blobstore.NewReader(blob), values, mapOpts...)
}
