package s3fetch

import (
	"errors"
	"path"
	"strings"
)

const uriScheme = "s3://"

// IsS3URI reports whether s names an S3 object rather than a local path.
func IsS3URI(s string) bool {
	return strings.HasPrefix(s, uriScheme)
}

// ParseS3URI parses an S3 URI (s3://bucket/key) into bucket and key components.
func ParseS3URI(uri string) (bucket, key string, err error) {
	if !IsS3URI(uri) {
		return "", "", errors.New("invalid S3 URI: must start with s3://")
	}

	p := strings.TrimPrefix(uri, uriScheme)
	parts := strings.SplitN(p, "/", 2)
	if len(parts) < 1 || parts[0] == "" {
		return "", "", errors.New("invalid S3 URI: missing bucket name")
	}

	bucket = parts[0]
	if len(parts) == 2 {
		key = parts[1]
	}

	return bucket, key, nil
}

// localName converts an S3 key to a safe local filename.
func localName(key string) string {
	name := path.Base(strings.TrimSuffix(key, "/"))
	if name == "." || name == "/" || name == "" {
		return "object"
	}
	return name
}
