// Package service holds the activity workflows shared by the HTTP API and
// the CLI: FIT import and copy-on-merge of offline heart rate.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ttu-dot/fitanalysis"
	"github.com/ttu-dot/fitanalysis/devices"
	"github.com/ttu-dot/fitanalysis/hrmerge"
	"github.com/ttu-dot/fitanalysis/store"
)

// MergeNamePrefix is prepended to the name of a merged copy.
const MergeNamePrefix = "[HR merge] "

// Config wires a Service. Nil fields get defaults.
type Config struct {
	Store      *store.Store
	Engine     *hrmerge.Engine
	Registry   *devices.Registry
	Normalizer *devices.Normalizer
	Logger     *zap.Logger
	NewID      func() string
	Now        func() time.Time
}

// Service imports and merges activities into a store.
type Service struct {
	store      *store.Store
	engine     *hrmerge.Engine
	registry   *devices.Registry
	normalizer *devices.Normalizer
	log        *zap.Logger
	newID      func() string
	now        func() time.Time
}

// New builds a Service.
func New(cfg Config) *Service {
	s := &Service{
		store:      cfg.Store,
		engine:     cfg.Engine,
		registry:   cfg.Registry,
		normalizer: cfg.Normalizer,
		log:        cfg.Logger,
		newID:      cfg.NewID,
		now:        cfg.Now,
	}
	if s.engine == nil {
		s.engine = hrmerge.New(hrmerge.Config{})
	}
	if s.registry == nil {
		s.registry = devices.DefaultRegistry()
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.normalizer == nil {
		s.normalizer = devices.NewNormalizer(s.log)
	}
	if s.newID == nil {
		s.newID = func() string { return uuid.NewString() }
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Store returns the backing store.
func (s *Service) Store() *store.Store {
	return s.store
}

// Registry returns the device registry used for decoding.
func (s *Service) Registry() *devices.Registry {
	return s.registry
}

// Import decodes a FIT file under a new id and saves it. An empty name
// defaults to the file name without extension.
func (s *Service) Import(ctx context.Context, data []byte, fileName, name string) (*fitanalysis.Activity, *store.Meta, error) {
	a, err := fitanalysis.DecodeBytes(data, fitanalysis.DecodeOptions{
		ID:         s.newID(),
		Name:       name,
		FileName:   fileName,
		Registry:   s.registry,
		Normalizer: s.normalizer,
		Now:        s.now,
	})
	if err != nil {
		return nil, nil, err
	}
	meta, err := s.store.Save(ctx, a)
	if err != nil {
		return nil, nil, err
	}
	s.log.Info("activity imported",
		zap.String("activity_id", a.ID),
		zap.String("file_name", fileName),
		zap.Int("records", len(a.Records)),
		zap.Int("laps", len(a.Laps)),
	)
	return a, meta, nil
}

// MergeHRCSV merges an offline heart-rate CSV into a copy of the stored
// activity id and saves the copy under a new id. The stored original is
// never modified.
func (s *Service) MergeHRCSV(ctx context.Context, id string, data []byte, fileName string, opts *hrmerge.Options) (*fitanalysis.Activity, *hrmerge.Result, error) {
	original, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	merged := original.Clone()
	merged.ID = s.newID()
	merged.Name = MergeNamePrefix + original.Name
	merged.CreatedAt = fitanalysis.Zoned(s.now())

	var source *string
	if fileName != "" {
		source = &fileName
	}
	res, err := s.engine.Merge(merged, data, source, opts)
	if err != nil {
		return nil, nil, err
	}
	if _, err := s.store.Save(ctx, merged); err != nil {
		return nil, nil, fmt.Errorf("saving merged activity: %w", err)
	}

	var dropped float64
	if merged.MergeProvenance != nil && merged.MergeProvenance.Stats.DroppedRatio != nil {
		dropped = *merged.MergeProvenance.Stats.DroppedRatio
	}
	s.log.Info("heart rate merged",
		zap.String("activity_id", merged.ID),
		zap.String("source_activity_id", id),
		zap.String("method", res.Method),
		zap.Float64("offset_sec", res.OffsetSec),
		zap.Float64("match_ratio", res.MatchRatio),
		zap.Float64("dropped_ratio", dropped),
		zap.String("device_key", res.DeviceKey),
	)
	return merged, res, nil
}
