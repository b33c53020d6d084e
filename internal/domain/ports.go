package domain

import (
	"context"
	"errors"
)

// ErrArchiveNotFound is returned when a read targets a path that does not exist.
var ErrArchiveNotFound = errors.New("archive not found")

type ArchiveWriter interface {
	Write(path string, a Archive) error
}

type ArchiveReader interface {
	Info(path string) (ArchiveInfo, error)
	ReadAggregates(path string) (StoredAggregates, error)
	ReadProperties(path string) (PropertyColumns, error)
}

type ArchiveStore interface {
	ArchiveWriter
	ArchiveReader
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// FeatureExporter writes the properties section to a GIS format.
type FeatureExporter interface {
	Export(path string, cols PropertyColumns) (int, error)
}
