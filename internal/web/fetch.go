package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Fetcher resolves convert-request refs: local paths, file://, http(s)://
// and s3://bucket/key. The S3 client is created on first use so setups
// without AWS credentials never touch the SDK.
type Fetcher struct {
	httpClient *http.Client
	maxBytes   int64

	s3Once sync.Once
	s3Cli  *s3.Client
	s3Err  error
}

func NewFetcher(maxUploadMB int) *Fetcher {
	if maxUploadMB <= 0 {
		maxUploadMB = 32
	}
	return &Fetcher{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxBytes:   int64(maxUploadMB) << 20,
	}
}

// Fetch returns the ref's content and a display name for page titling.
func (f *Fetcher) Fetch(ctx context.Context, ref string) ([]byte, string, error) {
	switch {
	case strings.HasPrefix(ref, "s3://"):
		return f.fetchS3(ctx, ref)
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return f.fetchHTTP(ctx, ref)
	case strings.HasPrefix(ref, "file://"):
		return f.fetchFile(strings.TrimPrefix(ref, "file://"))
	default:
		return f.fetchFile(ref)
	}
}

func (f *Fetcher) fetchFile(p string) ([]byte, string, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, "", err
	}
	if info.Size() > f.maxBytes {
		return nil, "", fmt.Errorf("file exceeds %d bytes", f.maxBytes)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, "", err
	}
	return data, filepath.Base(p), nil
}

func (f *Fetcher) fetchHTTP(ctx context.Context, ref string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, "", err
	}
	if int64(len(data)) > f.maxBytes {
		return nil, "", fmt.Errorf("response exceeds %d bytes", f.maxBytes)
	}
	u, _ := url.Parse(ref)
	name := "download.svg"
	if u != nil && path.Base(u.Path) != "/" && path.Base(u.Path) != "." {
		name = path.Base(u.Path)
	}
	return data, name, nil
}

func (f *Fetcher) fetchS3(ctx context.Context, ref string) ([]byte, string, error) {
	rest := strings.TrimPrefix(ref, "s3://")
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return nil, "", fmt.Errorf("malformed S3 ref %q", ref)
	}

	f.s3Once.Do(func() {
		cfg, err := awscfg.LoadDefaultConfig(ctx)
		if err != nil {
			f.s3Err = err
			return
		}
		f.s3Cli = s3.NewFromConfig(cfg)
	})
	if f.s3Err != nil {
		return nil, "", fmt.Errorf("S3 unavailable: %w", f.s3Err)
	}

	out, err := f.s3Cli.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", err
	}
	defer out.Body.Close()
	data, err := io.ReadAll(io.LimitReader(out.Body, f.maxBytes+1))
	if err != nil {
		return nil, "", err
	}
	if int64(len(data)) > f.maxBytes {
		return nil, "", fmt.Errorf("object exceeds %d bytes", f.maxBytes)
	}
	return data, path.Base(key), nil
}
