// Package minio provides a BlobStore backed by MinIO or any S3-compatible
// object store (Ceph, Garage, SeaweedFS) through the MinIO Go client.
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := minioblob.NewStore(client, "kernelgo", "snapshots/")
//	if err := store.EnsureBucket(ctx); err != nil {
//	    log.Fatal(err)
//	}
package minio
