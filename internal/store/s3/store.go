package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"go-tripplanner/internal/store"
	"go-tripplanner/pkg/models"
)

// API is the subset of the S3 client used by the store.
type API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Store keeps one JSON object per chat under prefix.
type Store struct {
	bucket string
	prefix string
	client API
}

type Option func(*Store)

func WithBucket(bucket string) Option {
	return func(s *Store) { s.bucket = bucket }
}

func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = strings.Trim(prefix, "/") }
}

func WithClient(clt API) Option {
	return func(s *Store) { s.client = clt }
}

func New(opts ...Option) (*Store, error) {
	s := &Store{prefix: "chats"}
	for _, opt := range opts {
		opt(s)
	}
	if s.bucket == "" {
		return nil, errors.New("s3 store: bucket is required")
	}
	if s.client == nil {
		return nil, errors.New("s3 store: client is required")
	}
	return s, nil
}

type ClientConfig struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// NewClient builds an S3 client with static credentials, optionally against
// an S3 compatible endpoint.
func NewClient(cfg ClientConfig) *s3.Client {
	return s3.New(s3.Options{
		Region: cfg.Region,
		Credentials: aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return aws.Credentials{AccessKeyID: cfg.AccessKeyID, SecretAccessKey: cfg.SecretAccessKey, Source: "tripplanner-config"}, nil
		}),
		BaseEndpoint: endpoint(cfg.Endpoint),
		UsePathStyle: cfg.UsePathStyle,
	})
}

func endpoint(e string) *string {
	if e == "" {
		return nil
	}
	return aws.String(e)
}

func (s *Store) key(id string) string {
	return path.Join(s.prefix, id+".json")
}

func (s *Store) Get(ctx context.Context, id string) (*models.Chat, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(s.key(id))})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("s3 get %s: %w", id, err)
	}
	defer out.Body.Close()
	b, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 read %s: %w", id, err)
	}
	var chat models.Chat
	if err := json.Unmarshal(b, &chat); err != nil {
		return nil, fmt.Errorf("s3 decode %s: %w", id, err)
	}
	if chat.Messages == nil {
		chat.Messages = []models.Message{}
	}
	return &chat, nil
}

func (s *Store) List(ctx context.Context) ([]*models.Chat, error) {
	out := []*models.Chat{}
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix + "/"),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 list: %w", err)
		}
		for _, obj := range page.Contents {
			id := strings.TrimSuffix(path.Base(aws.ToString(obj.Key)), ".json")
			chat, err := s.Get(ctx, id)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			out = append(out, chat)
		}
	}
	store.SortByUpdated(out)
	return out, nil
}

func (s *Store) Put(ctx context.Context, chat *models.Chat) error {
	b, err := json.Marshal(store.Clone(chat))
	if err != nil {
		return fmt.Errorf("s3 encode %s: %w", chat.ID, err)
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(chat.ID)),
		Body:        bytes.NewReader(b),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3 put %s: %w", chat.ID, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(s.key(id))})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return store.ErrNotFound
		}
		return fmt.Errorf("s3 head %s: %w", id, err)
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(s.key(id))}); err != nil {
		return fmt.Errorf("s3 delete %s: %w", id, err)
	}
	return nil
}

func (s *Store) Close() error { return nil }
