// Package cloudtest provides helpers for cloud integration tests against a
// MinIO server.
//
// By default a minio/minio container is started with testcontainers on first
// use and shared by every test in the package. Set BUCKETWALK_TEST_ENDPOINT
// to use an already running S3-compatible server instead. Tests using this
// package should be tagged with //go:build cloudintegration.
//
// Usage:
//
//	func TestMyS3Function(t *testing.T) {
//	    env := cloudtest.Start(t)
//	    bucket := cloudtest.CreateBucket(t, ctx)
//	    cloudtest.PutObject(t, ctx, bucket, "key", []byte("content"))
//	    // ... test code using env.Endpoint ...
//	}
package cloudtest

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// DefaultImage is the MinIO image started when no endpoint is configured.
	DefaultImage = "minio/minio:latest"

	// DefaultRegion is the region used by tests.
	DefaultRegion = "us-east-1"

	// TestAccessKeyID is the MinIO root user.
	TestAccessKeyID = "minioadmin"

	// TestSecretAccessKey is the MinIO root password.
	TestSecretAccessKey = "minioadmin"

	// EndpointEnv names an existing server to use instead of a container.
	EndpointEnv = "BUCKETWALK_TEST_ENDPOINT"

	minioPort = "9000/tcp"
)

// Env describes a running test server.
type Env struct {
	// Endpoint is the base URL, e.g. "http://localhost:32768".
	Endpoint string

	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

var (
	startOnce sync.Once
	env       *Env
	startErr  error
	container testcontainers.Container

	clientOnce sync.Once
	client     *s3.Client
	clientErr  error
)

func start(ctx context.Context) (*Env, error) {
	if endpoint := os.Getenv(EndpointEnv); endpoint != "" {
		return newEnv(endpoint), nil
	}

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        DefaultImage,
			ExposedPorts: []string{minioPort},
			Cmd:          []string{"server", "/data"},
			Env: map[string]string{
				"MINIO_ROOT_USER":     TestAccessKeyID,
				"MINIO_ROOT_PASSWORD": TestSecretAccessKey,
			},
			WaitingFor: wait.ForHTTP("/minio/health/live").
				WithPort(minioPort).
				WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("start minio container: %w", err)
	}
	container = c

	host, err := c.Host(ctx)
	if err != nil {
		_ = c.Terminate(ctx)
		return nil, fmt.Errorf("get container host: %w", err)
	}
	port, err := c.MappedPort(ctx, minioPort)
	if err != nil {
		_ = c.Terminate(ctx)
		return nil, fmt.Errorf("get container port: %w", err)
	}
	return newEnv(fmt.Sprintf("http://%s:%s", host, port.Port())), nil
}

func newEnv(endpoint string) *Env {
	return &Env{
		Endpoint:        strings.TrimRight(endpoint, "/"),
		Region:          DefaultRegion,
		AccessKeyID:     TestAccessKeyID,
		SecretAccessKey: TestSecretAccessKey,
	}
}

// Start returns the shared test server, starting it on first use. The test
// is skipped in short mode or when no server can be started.
func Start(t *testing.T) *Env {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping cloud integration test in short mode")
	}
	startOnce.Do(func() {
		env, startErr = start(context.Background())
	})
	if startErr != nil {
		t.Skipf("test server not available (docker required or set %s): %v", EndpointEnv, startErr)
	}
	return env
}

// Terminate stops the shared container, if one was started. Call it from
// TestMain after m.Run.
func Terminate() {
	if container != nil {
		_ = container.Terminate(context.Background())
	}
}

// Client returns a shared S3 client for the test server.
func Client(e *Env) (*s3.Client, error) {
	clientOnce.Do(func() {
		ctx := context.Background()
		cfg, err := config.LoadDefaultConfig(ctx,
			config.WithRegion(e.Region),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				e.AccessKeyID,
				e.SecretAccessKey,
				"",
			)),
		)
		if err != nil {
			clientErr = fmt.Errorf("load config: %w", err)
			return
		}

		client = s3.NewFromConfig(cfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(e.Endpoint)
			o.UsePathStyle = true
		})
	})

	return client, clientErr
}

// ClientT returns the S3 client, skipping the test when no server is
// available and failing it on client errors.
func ClientT(t *testing.T) *s3.Client {
	t.Helper()
	c, err := Client(Start(t))
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}
	return c
}

// BucketName derives a unique, valid bucket name from the test name.
func BucketName(t *testing.T) string {
	name := strings.ToLower(t.Name())
	name = strings.NewReplacer("/", "-", "_", "-", " ", "-").Replace(name)
	// S3 bucket names max 63 chars.
	if len(name) > 50 {
		name = name[:50]
	}
	name = strings.Trim(name, "-")
	return fmt.Sprintf("%s-%d", name, time.Now().UnixNano()%100000)
}

// CreateBucket creates a test bucket with a unique name and registers cleanup.
func CreateBucket(t *testing.T, ctx context.Context) string {
	t.Helper()

	c := ClientT(t)
	name := BucketName(t)

	_, err := c.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(name),
	})
	if err != nil {
		t.Fatalf("failed to create bucket %s: %v", name, err)
	}

	t.Cleanup(func() {
		DeleteBucket(t, context.Background(), name)
	})

	return name
}

// DeleteBucket deletes a bucket and all its contents.
func DeleteBucket(t *testing.T, ctx context.Context, bucket string) {
	t.Helper()

	c := ClientT(t)

	paginator := s3.NewListObjectsV2Paginator(c, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			t.Logf("warning: failed to list objects in bucket %s: %v", bucket, err)
			return
		}

		for _, obj := range page.Contents {
			_, err := c.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(bucket),
				Key:    obj.Key,
			})
			if err != nil {
				t.Logf("warning: failed to delete object %s: %v", *obj.Key, err)
			}
		}
	}

	_, err := c.DeleteBucket(ctx, &s3.DeleteBucketInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		t.Logf("warning: failed to delete bucket %s: %v", bucket, err)
	}
}

// PutObject uploads an object to the bucket.
func PutObject(t *testing.T, ctx context.Context, bucket, key string, content []byte) {
	t.Helper()

	c := ClientT(t)

	_, err := c.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   strings.NewReader(string(content)),
	})
	if err != nil {
		t.Fatalf("failed to put object %s/%s: %v", bucket, key, err)
	}
}

// PutObjects uploads objects with the given keys and small bodies.
func PutObjects(t *testing.T, ctx context.Context, bucket string, keys []string) {
	t.Helper()

	for _, key := range keys {
		PutObject(t, ctx, bucket, key, []byte("test content for "+key))
	}
}
