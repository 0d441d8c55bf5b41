package datasource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Datasource is a Datasource backed by one S3 (or S3-compatible) bucket
// and key prefix, exercising the streaming-read contract over an object
// store instead of a filesystem — the teacher has no object-storage client,
// so this is grounded on datasource.go's generic contract plus the
// aws-sdk-go-v2 domain-stack wiring from SPEC_FULL.md.
type S3Datasource struct {
	id     string
	bucket string
	prefix string
	client *s3.Client
}

// S3Config holds the connection parameters for one S3Datasource.
type S3Config struct {
	ID       string
	Bucket   string
	Prefix   string
	Region   string
	Endpoint string // non-empty selects an S3-compatible endpoint (e.g. MinIO)
	Key      string
	Secret   string
}

// NewS3Datasource connects to cfg's bucket using static credentials when
// provided, falling back to the default AWS credential chain otherwise.
func NewS3Datasource(ctx context.Context, cfg S3Config) (*S3Datasource, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.Key != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.Key, cfg.Secret, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("datasource %s: load aws config: %w", cfg.ID, err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Datasource{
		id:     cfg.ID,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		client: client,
	}, nil
}

func (d *S3Datasource) ID() string { return d.id }

func (d *S3Datasource) key(p string) string {
	if d.prefix == "" {
		return strings.TrimPrefix(p, "/")
	}
	return path.Join(d.prefix, p)
}

// List lists the immediate "directory" children of path using S3's
// delimiter-based grouping: common prefixes become directories, objects
// directly under the key become files.
func (d *S3Datasource) List(ctx context.Context, dirPath string) ([]Entry, error) {
	prefix := d.key(dirPath)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	var out []Entry
	var token *string
	for {
		resp, err := d.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(d.bucket),
			Prefix:            aws.String(prefix),
			Delimiter:         aws.String("/"),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("datasource %s: list %s: %w", d.id, dirPath, err)
		}

		for _, cp := range resp.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), prefix), "/")
			if name == "" {
				continue
			}
			out = append(out, Entry{Name: name, IsDir: true})
		}
		for _, obj := range resp.Contents {
			key := aws.ToString(obj.Key)
			if key == prefix {
				continue
			}
			out = append(out, Entry{
				Name:       strings.TrimPrefix(key, prefix),
				IsDir:      false,
				SizeBytes:  aws.ToInt64(obj.Size),
				ModifiedAt: aws.ToTime(obj.LastModified),
			})
		}

		if !aws.ToBool(resp.IsTruncated) {
			break
		}
		token = resp.NextContinuationToken
	}
	return out, nil
}

func (d *S3Datasource) OpenRead(ctx context.Context, objPath string) (io.ReadCloser, error) {
	out, err := d.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(d.key(objPath)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, &ErrNotFound{Path: objPath}
		}
		return nil, fmt.Errorf("datasource %s: open %s: %w", d.id, objPath, err)
	}
	return out.Body, nil
}
