package documents

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"github.com/archlens/archlens/pkg/models"
)

// S3ProviderConfig contains configuration for the S3 document provider
type S3ProviderConfig struct {
	Region    string
	Bucket    string
	Prefix    string
	AccessKey string
	SecretKey string
	Endpoint  string // Optional, for S3-compatible stores
}

// S3Provider implements the Provider interface against an S3 bucket.
//
// The upload path parks document text under
// {prefix}documents/{documentID}/{version}/content.txt with the title in the
// object metadata, and extracted diagrams as siblings under diagrams/.
type S3Provider struct {
	client s3iface.S3API
	bucket string
	prefix string
}

// NewS3Provider creates a new S3 document provider
func NewS3Provider(config S3ProviderConfig) (*S3Provider, error) {
	awsConfig := &aws.Config{
		Region: aws.String(config.Region),
	}

	if config.AccessKey != "" && config.SecretKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(
			config.AccessKey,
			config.SecretKey,
			"",
		)
	}

	if config.Endpoint != "" {
		awsConfig.Endpoint = aws.String(config.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return NewS3ProviderWithClient(s3.New(sess), config.Bucket, config.Prefix), nil
}

// NewS3ProviderWithClient creates a new S3 document provider with a custom client.
// This is primarily used for testing with mock clients.
func NewS3ProviderWithClient(client s3iface.S3API, bucket, prefix string) *S3Provider {
	return &S3Provider{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

// contentKey builds the object key for a document version's extracted text
func (p *S3Provider) contentKey(documentID, version string) string {
	return path.Join(p.prefix, "documents", documentID, version, "content.txt")
}

// diagramPrefix builds the key prefix for a document version's diagrams
func (p *S3Provider) diagramPrefix(documentID, version string) string {
	return path.Join(p.prefix, "documents", documentID, version, "diagrams") + "/"
}

// Get retrieves a document
func (p *S3Provider) Get(ctx context.Context, documentID, version string) (Document, error) {
	key := p.contentKey(documentID, version)

	result, err := p.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok {
			switch aerr.Code() {
			case s3.ErrCodeNoSuchKey, "NotFound":
				return Document{}, models.NewNotFoundError("document", documentID+"@"+version)
			}
		}
		return Document{}, fmt.Errorf("failed to get document object: %w", err)
	}
	defer result.Body.Close()

	content, err := io.ReadAll(result.Body)
	if err != nil {
		return Document{}, fmt.Errorf("failed to read document content: %w", err)
	}

	title := documentID
	if t, ok := result.Metadata["Title"]; ok && aws.StringValue(t) != "" {
		title = aws.StringValue(t)
	}

	diagrams, err := p.listDiagrams(ctx, documentID, version)
	if err != nil {
		return Document{}, err
	}

	return Document{
		ID:          documentID,
		Version:     version,
		Title:       title,
		ContentRef:  "s3://" + p.bucket + "/" + key,
		Content:     string(content),
		DiagramRefs: diagrams,
	}, nil
}

// listDiagrams enumerates diagram objects stored next to the document content
func (p *S3Provider) listDiagrams(ctx context.Context, documentID, version string) ([]string, error) {
	result, err := p.client.ListObjectsV2WithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(p.bucket),
		Prefix: aws.String(p.diagramPrefix(documentID, version)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list diagram objects: %w", err)
	}

	var refs []string
	for _, obj := range result.Contents {
		key := aws.StringValue(obj.Key)
		if strings.HasSuffix(key, "/") {
			continue
		}
		refs = append(refs, "s3://"+p.bucket+"/"+key)
	}

	return refs, nil
}
