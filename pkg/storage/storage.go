package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinioStorage struct {
	client *minio.Client
	bucket string
}

func NewMinioStorage(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinioStorage, error) {
	minioClient, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к MinIO: %w", err)
	}

	return &MinioStorage{
		client: minioClient,
		bucket: bucket,
	}, nil
}

// GetFile возвращает поток данных из MinIO
func (s *MinioStorage) GetFile(ctx context.Context, objectName string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("ошибка получения файла %s: %w", objectName, err)
	}
	// GetObject ленивый: ошибки вроде NoSuchKey видны только после Stat
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, fmt.Errorf("ошибка получения файла %s: %w", objectName, err)
	}
	return obj, nil
}

// ListFiles возвращает имена объектов под префиксом (без рекурсии).
func (s *MinioStorage) ListFiles(ctx context.Context, prefix string) ([]string, error) {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return nil, fmt.Errorf("ошибка проверки бакета %s: %w", s.bucket, err)
	}
	if !exists {
		return nil, fmt.Errorf("бакет %s не найден", s.bucket)
	}

	var names []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("ошибка чтения списка объектов: %w", obj.Err)
		}
		names = append(names, obj.Key)
	}
	return names, nil
}
