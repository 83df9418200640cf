package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// UploadContext holds the fields that route an upload and later commit it.
// Which fields are set depends on the upload kind.
type UploadContext struct {
	StormID     *int64 `json:"storm_id,omitempty"`
	IssuedDate  string `json:"issued_date,omitempty"`
	DataType    string `json:"data_type,omitempty"`
	ReservoirID *int64 `json:"reservoir_id,omitempty"`
	S2SID       *int64 `json:"s2s_id,omitempty"`
	Path        string `json:"path,omitempty"`
}

// UploadSession records a presigned key so commit can run at most once and
// the sweeper can find objects nobody committed.
type UploadSession struct {
	ID          uuid.UUID           `db:"id" json:"id"`
	Key         string              `db:"object_key" json:"key"`
	Kind        UploadKind          `db:"kind" json:"kind"`
	FileName    string              `db:"file_name" json:"file_name"`
	ContentType string              `db:"content_type" json:"content_type"`
	Context     json.RawMessage     `db:"context" json:"context"`
	Status      UploadSessionStatus `db:"status" json:"status"`
	ExpiresAt   time.Time           `db:"expires_at" json:"expires_at"`
	CommittedAt *time.Time          `db:"committed_at" json:"committed_at,omitempty"`
	CreatedAt   time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time           `db:"updated_at" json:"updated_at"`
}

// DecodeContext unmarshals the stored upload context.
func (s *UploadSession) DecodeContext() (UploadContext, error) {
	var uc UploadContext
	if len(s.Context) == 0 {
		return uc, nil
	}
	err := json.Unmarshal(s.Context, &uc)
	return uc, err
}

// DataFile is a stored file made visible to the rest of the platform.
type DataFile struct {
	ID          int64      `db:"id" json:"id"`
	Kind        FileKind   `db:"kind" json:"kind"`
	StormID     *int64     `db:"storm_id" json:"storm_id,omitempty"`
	ReservoirID *int64     `db:"reservoir_id" json:"reservoir_id,omitempty"`
	S2SID       *int64     `db:"s2s_id" json:"s2s_id,omitempty"`
	DataType    string     `db:"data_type" json:"data_type,omitempty"`
	IssuedTime  *time.Time `db:"issued_time" json:"issued_time,omitempty"`
	FromTime    *time.Time `db:"from_time" json:"from_time,omitempty"`
	ToTime      *time.Time `db:"to_time" json:"to_time,omitempty"`
	AddedTime   *time.Time `db:"added_time" json:"added_time,omitempty"`
	UpdatedTime *time.Time `db:"updated_time" json:"updated_time,omitempty"`
	FilePath    string     `db:"file_path" json:"file_path"`
	FileName    string     `db:"file_name" json:"file_name"`
	ContentType string     `db:"content_type" json:"content_type"`
	FileSize    int64      `db:"file_size" json:"file_size"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// DataFileFilter narrows a data-file listing.
type DataFileFilter struct {
	Kind        FileKind
	StormID     *int64
	ReservoirID *int64
	S2SID       *int64
	DataType    string
	StartDate   *time.Time
	EndDate     *time.Time
	Search      string
	Offset      int
	Limit       int
}

// PresignResult is handed to the client for a direct upload.
type PresignResult struct {
	UploadURL  string    `json:"uploadUrl"`
	Key        string    `json:"key"`
	IssuedDate string    `json:"issuedDate,omitempty"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// CommitMeta identifies the primary record created by a commit.
type CommitMeta struct {
	Type FileKind `json:"type"`
	ID   int64    `json:"id"`
}

// CommitResult is returned once a key has been turned into records.
type CommitResult struct {
	Key   string     `json:"key"`
	Meta  CommitMeta `json:"meta"`
	Items []DataFile `json:"items"`
}

// LegacyUploadResult is the response of the single-request upload endpoint.
type LegacyUploadResult struct {
	Key  string     `json:"key"`
	URL  string     `json:"url"`
	Meta CommitMeta `json:"meta"`
}

// UploadCommitted is published after a key has been recorded.
type UploadCommitted struct {
	Key         string    `json:"key"`
	Kind        FileKind  `json:"kind"`
	RecordID    int64     `json:"record_id"`
	StormID     *int64    `json:"storm_id,omitempty"`
	ReservoirID *int64    `json:"reservoir_id,omitempty"`
	S2SID       *int64    `json:"s2s_id,omitempty"`
	DataType    string    `json:"data_type,omitempty"`
	Legacy      bool      `json:"legacy,omitempty"`
	CommittedAt time.Time `json:"committed_at"`
}

// OrphanedObject describes a stored object that no record references.
type OrphanedObject struct {
	SessionID  uuid.UUID  `json:"session_id"`
	Key        string     `json:"key"`
	Kind       UploadKind `json:"kind"`
	FileName   string     `json:"file_name"`
	Size       int64      `json:"size"`
	ExpiredAt  time.Time  `json:"expired_at"`
	DetectedAt time.Time  `json:"detected_at"`
	Deleted    bool       `json:"deleted"`
}
