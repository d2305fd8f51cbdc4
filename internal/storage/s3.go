// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package storage provides an S3-compatible object storage client for the
// images the editor swaps into sites and the site snapshots. It wraps the
// AWS SDK v2 and is configured for path-style access (CEPH/Hetzner/MinIO).
package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

// Options configures the storage client.
type Options struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	// PublicURL is an optional CDN or custom domain serving the bucket.
	PublicURL string
}

// Client stores public objects in a single bucket.
type Client struct {
	s3        *s3.Client
	bucket    string
	endpoint  string
	publicURL string
}

// New creates an S3 storage client with path-style addressing. Returns
// (nil, nil) if endpoint or credentials are empty, allowing the app to
// start without storage; callers treat a nil client as disabled.
func New(opts Options) (*Client, error) {
	if opts.Endpoint == "" || opts.AccessKey == "" || opts.SecretKey == "" {
		return nil, nil
	}
	if opts.Bucket == "" {
		return nil, fmt.Errorf("storage: bucket is required")
	}

	endpoint := strings.TrimRight(opts.Endpoint, "/")

	s3Client := s3.New(s3.Options{
		Region:       opts.Region,
		BaseEndpoint: aws.String(endpoint),
		Credentials:  credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		UsePathStyle: true,
	})

	return &Client{
		s3:        s3Client,
		bucket:    opts.Bucket,
		endpoint:  endpoint,
		publicURL: strings.TrimRight(opts.PublicURL, "/"),
	}, nil
}

// Put uploads data under key with a public-read ACL and returns the URL
// the object is served from.
func (c *Client) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
		CacheControl:  aws.String("public, max-age=31536000, immutable"),
		ACL:           s3types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload %s/%s: %w", c.bucket, key, err)
	}
	return c.FileURL(key), nil
}

// Delete removes an object.
func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %s/%s: %w", c.bucket, key, err)
	}
	return nil
}

// FileURL returns the public URL for key. Uses the configured public URL
// if set, otherwise builds a path-style URL.
func (c *Client) FileURL(key string) string {
	if c.publicURL != "" {
		return c.publicURL + "/" + key
	}
	return c.endpoint + "/" + c.bucket + "/" + key
}

// KeyFromURL extracts the object key from a URL this client produced.
func (c *Client) KeyFromURL(rawURL string) (string, bool) {
	if c.publicURL != "" {
		if key, ok := strings.CutPrefix(rawURL, c.publicURL+"/"); ok {
			return key, true
		}
	}
	if key, ok := strings.CutPrefix(rawURL, c.endpoint+"/"+c.bucket+"/"); ok {
		return key, true
	}
	return "", false
}

// OverrideKey names an uploaded replacement image owned by a client site,
// skeleton or template: "overrides/<kind>/<owner>/<uuid>.<ext>".
func OverrideKey(kind, owner, ext string) string {
	return path.Join("overrides", kind, owner, uuid.NewString()+"."+strings.TrimPrefix(ext, "."))
}

// SnapshotKey names a site thumbnail. The timestamp keeps old thumbnails
// from being served out of CDN caches after a re-capture.
func SnapshotKey(clientID uuid.UUID, at time.Time) string {
	return fmt.Sprintf("snapshots/%s/%d.png", clientID, at.Unix())
}
