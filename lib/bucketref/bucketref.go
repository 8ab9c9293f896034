// Package bucketref parses the identifier of a pre-existing S3 bucket that is exposed through the CDN.
package bucketref

import (
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go/aws/arn"
)

var (
	ErrEmptyIdentifier   = errors.New("bucket identifier is empty")
	ErrNotARN            = errors.New("bucket identifier is not an ARN")
	ErrNotS3             = errors.New("ARN does not reference the s3 service")
	ErrScopedARN         = errors.New("bucket ARN must not carry a region or account")
	ErrObjectPath        = errors.New("bucket ARN references objects, not a bucket")
	ErrInvalidBucketName = errors.New("invalid bucket name")
)

var bucketNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

// Ref is a resolved reference to a bucket.
type Ref struct {
	Partition string
	Bucket    string
}

// Parse validates an S3 bucket ARN such as "arn:aws:s3:::my-build-bucket".
func Parse(identifier string) (Ref, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return Ref{}, ErrEmptyIdentifier
	}
	if !arn.IsARN(identifier) {
		return Ref{}, fmt.Errorf("%w: %q", ErrNotARN, identifier)
	}
	parsed, err := arn.Parse(identifier)
	if err != nil {
		return Ref{}, fmt.Errorf("%w: %q: %v", ErrNotARN, identifier, err)
	}
	if parsed.Service != "s3" {
		return Ref{}, fmt.Errorf("%w: service %q", ErrNotS3, parsed.Service)
	}
	if parsed.Region != "" || parsed.AccountID != "" {
		return Ref{}, fmt.Errorf("%w: %q", ErrScopedARN, identifier)
	}
	if strings.Contains(parsed.Resource, "/") {
		return Ref{}, fmt.Errorf("%w: %q", ErrObjectPath, parsed.Resource)
	}
	if err := ValidateBucketName(parsed.Resource); err != nil {
		return Ref{}, err
	}
	return Ref{Partition: parsed.Partition, Bucket: parsed.Resource}, nil
}

// MustParse is Parse for identifiers known to be valid.
func MustParse(identifier string) Ref {
	ref, err := Parse(identifier)
	if err != nil {
		panic(err)
	}
	return ref
}

// ValidateBucketName applies the S3 general purpose bucket naming rules.
func ValidateBucketName(name string) error {
	if !bucketNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q must be 3-63 lowercase letters, digits, dots or hyphens", ErrInvalidBucketName, name)
	}
	if strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q contains adjacent periods", ErrInvalidBucketName, name)
	}
	if net.ParseIP(name) != nil {
		return fmt.Errorf("%w: %q is formatted as an IP address", ErrInvalidBucketName, name)
	}
	return nil
}

// ARN returns the bucket ARN.
func (r Ref) ARN() string {
	return arn.ARN{Partition: r.Partition, Service: "s3", Resource: r.Bucket}.String()
}

// ObjectsARN returns the ARN matching objects under the bucket, e.g. "arn:aws:s3:::bucket/*".
func (r Ref) ObjectsARN(pattern string) string {
	return r.ARN() + "/" + pattern
}

func (r Ref) String() string {
	return r.ARN()
}
