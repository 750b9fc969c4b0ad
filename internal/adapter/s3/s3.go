package s3

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/Ning0612/unfold/internal/adapter"
	"github.com/Ning0612/unfold/internal/adapter/local"
	"github.com/Ning0612/unfold/internal/domain"
	"github.com/Ning0612/unfold/internal/logger"
)

// API is the subset of the S3 client the remote uses
type API interface {
	// ListObjectsV2 lists objects, one page at a time
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)

	// GetObject retrieves an object
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)

	// DeleteObject deletes a single object
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)

	// DeleteObjects deletes up to 1000 objects in one request
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// Config describes one S3 remote
type Config struct {
	Name      string
	Bucket    string
	Region    string
	Endpoint  string
	PathStyle bool

	// Static keys; when empty the default AWS credential chain is used
	AccessKeyID     string
	SecretAccessKey string
}

// ClientFactory builds an API client for a remote
type ClientFactory func(ctx context.Context, cfg Config) (API, error)

// Backend serves S3 remotes declared in the config file
type Backend struct {
	remotes   map[string]Config
	store     *local.Store
	newClient ClientFactory
}

var _ adapter.Backend = (*Backend)(nil)

// New creates a backend over the given remotes using the AWS SDK
func New(remotes []Config, store *local.Store) *Backend {
	return NewWithFactory(remotes, store, NewClient)
}

// NewWithFactory creates a backend with a custom client factory.
// Remote names are case-insensitive, the way the config file stores them.
func NewWithFactory(remotes []Config, store *local.Store, factory ClientFactory) *Backend {
	byName := make(map[string]Config, len(remotes))
	for _, r := range remotes {
		r.Name = strings.ToLower(r.Name)
		byName[r.Name] = r
	}
	return &Backend{remotes: byName, store: store, newClient: factory}
}

// NewClient creates an S3 client from the default AWS configuration,
// overridden by the remote's region, endpoint and static keys
func NewClient(ctx context.Context, cfg Config) (API, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: loading AWS config for %s: %v", domain.ErrBackendUnavailable, cfg.Name, err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	}), nil
}

// Type implements adapter.Backend
func (b *Backend) Type() domain.RemoteType {
	return domain.RemoteS3
}

// Remotes implements adapter.Backend
func (b *Backend) Remotes(ctx context.Context) ([]domain.RemoteInfo, error) {
	remotes := make([]domain.RemoteInfo, 0, len(b.remotes))
	for name := range b.remotes {
		remotes = append(remotes, domain.RemoteInfo{Name: name, Type: "s3", Backend: domain.RemoteS3})
	}
	sort.Slice(remotes, func(i, j int) bool { return remotes[i].Name < remotes[j].Name })
	return remotes, nil
}

// Open implements adapter.Backend
func (b *Backend) Open(ctx context.Context, name string) (adapter.Remote, error) {
	cfg, ok := b.remotes[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a configured s3 remote", domain.ErrRemoteNotFound, name)
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: s3 remote %q has no bucket", domain.ErrConfigInvalid, name)
	}

	client, err := b.newClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	logger.Get().Debug("opened s3 remote", "remote", cfg.Name, "bucket", cfg.Bucket, "endpoint", cfg.Endpoint)
	return &Remote{client: client, store: b.store, name: cfg.Name, bucket: cfg.Bucket}, nil
}

// mapError converts S3 errors to domain errors
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var noKey *types.NoSuchKey
	var noBucket *types.NoSuchBucket
	var notFound *types.NotFound
	if errors.As(err, &noKey) || errors.As(err, &noBucket) || errors.As(err, &notFound) {
		return fmt.Errorf("%w: %v", domain.ErrNotFound, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrBackend, err)
}
