package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

type S3 struct {
	client        s3iface.S3API
	bucket        string
	region        string
	cloudFrontURL string
}

func NewS3(bucket, region, cloudFrontURL string) (*S3, error) {
	if bucket == "" || region == "" {
		return nil, fmt.Errorf("S3_BUCKET and S3_REGION are required")
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, err
	}

	return NewS3WithClient(s3.New(sess), bucket, region, cloudFrontURL), nil
}

func NewS3WithClient(client s3iface.S3API, bucket, region, cloudFrontURL string) *S3 {
	return &S3{
		client:        client,
		bucket:        bucket,
		region:        region,
		cloudFrontURL: strings.TrimRight(cloudFrontURL, "/"),
	}
}

func (s *S3) Mode() string { return "s3" }

func (s *S3) Save(ctx context.Context, originalName, contentType string, data []byte) (string, error) {
	key := "invoices/" + objectName(originalName, time.Now())

	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", err
	}

	return s.urlFor(key), nil
}

func (s *S3) Delete(ctx context.Context, rawURL string) error {
	key, err := s.keyFromURL(rawURL)
	if err != nil {
		return err
	}

	_, err = s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

func (s *S3) urlFor(key string) string {
	if s.cloudFrontURL != "" {
		return s.cloudFrontURL + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}

// keyFromURL reverses urlFor for both the CloudFront and the bucket host form.
func (s *S3) keyFromURL(rawURL string) (string, error) {
	if s.cloudFrontURL != "" && strings.HasPrefix(rawURL, s.cloudFrontURL+"/") {
		return strings.TrimPrefix(rawURL, s.cloudFrontURL+"/"), nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid object url: %w", err)
	}
	if u.Host != fmt.Sprintf("%s.s3.%s.amazonaws.com", s.bucket, s.region) {
		return "", fmt.Errorf("object url %s does not belong to bucket %s", rawURL, s.bucket)
	}
	return strings.TrimPrefix(u.Path, "/"), nil
}
