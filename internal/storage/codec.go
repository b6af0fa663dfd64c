package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"ampclimb/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var (
	ErrVersionMismatch = errors.New("record version mismatch")
	ErrMissingID       = errors.New("batch id is required")
)

// Stamp sets the current record versions on b.
func Stamp(b model.Batch) model.Batch {
	b.SchemaVersion = CurrentSchemaVersion
	b.CodecVersion = CurrentCodecVersion
	return b
}

func EncodeBatch(b model.Batch) ([]byte, error) {
	if b.ID == "" {
		return nil, ErrMissingID
	}
	return json.Marshal(b)
}

func DecodeBatch(data []byte) (model.Batch, error) {
	var batch model.Batch
	if err := json.Unmarshal(data, &batch); err != nil {
		return model.Batch{}, err
	}
	if err := checkVersion(batch.VersionedRecord); err != nil {
		return model.Batch{}, fmt.Errorf("batch %s: %w", batch.ID, err)
	}
	return batch, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}

// sortNewestFirst orders by creation time, then id, both descending.
func sortNewestFirst(summaries []model.BatchSummary) {
	sort.SliceStable(summaries, func(i, j int) bool {
		if summaries[i].CreatedAtUTC != summaries[j].CreatedAtUTC {
			return summaries[i].CreatedAtUTC > summaries[j].CreatedAtUTC
		}
		return summaries[i].ID > summaries[j].ID
	})
}
