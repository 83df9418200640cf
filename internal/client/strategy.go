package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"hydromet/internal/domain"
	"hydromet/internal/upload"
)

// StormContext identifies a storm forecast run.
type StormContext struct {
	StormID    int64
	IssuedTime time.Time
}

// ReservoirContext is the context of a reservoir operation file.
type ReservoirContext struct {
	ReservoirID *int64
	FromTime    *time.Time
	ToTime      *time.Time
	AddedTime   *time.Time
}

// S2SContext is the context of a sub-seasonal forecast file. A zero
// AddedTime means now.
type S2SContext struct {
	S2SID     int64
	AddedTime time.Time
}

// StormStrategy uploads an NWP, HRES or BESTTRACK file through the storm
// presign and commit endpoints. BESTTRACK records always need a file, so that
// strategy has no metadata-only branch.
func (c *Client) StormStrategy(kind domain.FileKind, sc StormContext) (upload.Strategy, error) {
	dataType := kind.StormDataType()
	if dataType == "" {
		return upload.Strategy{}, fmt.Errorf("%w: %q is not a storm kind", domain.ErrUnsupportedDataType, kind)
	}
	files, err := c.DataFiles(kind)
	if err != nil {
		return upload.Strategy{}, err
	}
	issued := upload.FormatIssuedHour(sc.IssuedTime)
	issuedTime := sc.IssuedTime.UTC()

	s := upload.Strategy{
		Name: string(kind),
		Presign: func(ctx context.Context, file upload.FileInfo) (*upload.Target, error) {
			return c.PresignStorm(ctx, file, sc.StormID, issued, dataType)
		},
		Commit: func(ctx context.Context, key string) (*upload.CommitResult, error) {
			return c.CommitStorm(ctx, key, sc.StormID, issued, dataType)
		},
		Range: c.rng,
	}
	if kind != domain.FileKindBestTrack {
		s.Direct = func(ctx context.Context) (*upload.CommitResult, error) {
			return createRecord(ctx, files, map[string]any{
				"storm_id":    sc.StormID,
				"issued_time": issuedTime,
				"data_type":   string(dataType),
			})
		}
	}
	return s, nil
}

// ReservoirStrategy uploads a reservoir operation file.
func (c *Client) ReservoirStrategy(rc ReservoirContext) (upload.Strategy, error) {
	files, err := c.DataFiles(domain.FileKindReservoirOperation)
	if err != nil {
		return upload.Strategy{}, err
	}

	return upload.Strategy{
		Name: string(domain.FileKindReservoirOperation),
		Presign: func(ctx context.Context, file upload.FileInfo) (*upload.Target, error) {
			target, err := c.PresignReservoir(ctx, file, rc.ReservoirID)
			if err != nil {
				return nil, err
			}
			return &target.Target, nil
		},
		Commit: func(ctx context.Context, key string) (*upload.CommitResult, error) {
			return c.CommitReservoir(ctx, key, ReservoirCommit{
				ReservoirID: rc.ReservoirID,
				FromTime:    rc.FromTime,
				ToTime:      rc.ToTime,
				AddedTime:   rc.AddedTime,
			})
		},
		Direct: func(ctx context.Context) (*upload.CommitResult, error) {
			body := map[string]any{}
			if rc.ReservoirID != nil {
				body["reservoir_id"] = *rc.ReservoirID
			}
			for field, t := range map[string]*time.Time{
				"from_time":  rc.FromTime,
				"to_time":    rc.ToTime,
				"added_time": rc.AddedTime,
			} {
				if t != nil {
					body[field] = t.UTC()
				}
			}
			return createRecord(ctx, files, body)
		},
		Range: c.rng,
	}, nil
}

// S2SStrategy uploads a sub-seasonal forecast file under a generic key and
// records it by creating the s2s-files record that points at the key.
func (c *Client) S2SStrategy(sc S2SContext) (upload.Strategy, error) {
	files, err := c.DataFiles(domain.FileKindS2S)
	if err != nil {
		return upload.Strategy{}, err
	}
	added := sc.AddedTime
	if added.IsZero() {
		added = c.clock.Now()
	}
	added = added.UTC()
	path := fmt.Sprintf("precipitation/s2s/%d/%s", sc.S2SID, upload.FormatIssuedHour(added))

	return upload.Strategy{
		Name: string(domain.FileKindS2S),
		Presign: func(ctx context.Context, file upload.FileInfo) (*upload.Target, error) {
			return c.PresignGeneric(ctx, file, GenericContext{Path: path})
		},
		Commit: func(ctx context.Context, key string) (*upload.CommitResult, error) {
			return createRecord(ctx, files, map[string]any{
				"s2s_id":     sc.S2SID,
				"file_path":  key,
				"added_time": added,
			})
		},
		Direct: func(ctx context.Context) (*upload.CommitResult, error) {
			return createRecord(ctx, files, map[string]any{
				"s2s_id":     sc.S2SID,
				"added_time": added,
			})
		},
		Range: c.rng,
	}, nil
}

// GenericStrategy uploads a file under an arbitrary path. Nothing records the
// key, so the commit result only carries it back.
func (c *Client) GenericStrategy(gc GenericContext) upload.Strategy {
	return upload.Strategy{
		Name: string(domain.UploadKindGeneric),
		Presign: func(ctx context.Context, file upload.FileInfo) (*upload.Target, error) {
			return c.PresignGeneric(ctx, file, gc)
		},
		Commit: func(_ context.Context, key string) (*upload.CommitResult, error) {
			body, err := json.Marshal(map[string]string{"key": key})
			if err != nil {
				return nil, err
			}
			return &upload.CommitResult{Key: key, Body: body}, nil
		},
		Range: c.rng,
	}
}

func createRecord(ctx context.Context, files *Resource[DataFile], body map[string]any) (*upload.CommitResult, error) {
	raw, err := files.CreateRaw(ctx, body)
	if err != nil {
		return nil, err
	}
	return upload.DecodeCommitResult(raw)
}
