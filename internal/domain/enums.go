package domain

import "strings"

// FileKind identifies a data-file resource.
type FileKind string

const (
	FileKindNWP                FileKind = "nwp"
	FileKindHRES               FileKind = "hres"
	FileKindBestTrack          FileKind = "besttrack"
	FileKindReservoirOperation FileKind = "reservoir-operation"
	FileKindS2S                FileKind = "s2s"
)

// FileKinds lists every data-file kind in display order.
var FileKinds = []FileKind{
	FileKindNWP,
	FileKindHRES,
	FileKindBestTrack,
	FileKindReservoirOperation,
	FileKindS2S,
}

// Valid reports whether k is a known kind.
func (k FileKind) Valid() bool {
	for _, known := range FileKinds {
		if k == known {
			return true
		}
	}
	return false
}

// IsStorm reports whether k belongs to a storm.
func (k FileKind) IsStorm() bool {
	return k == FileKindNWP || k == FileKindHRES || k == FileKindBestTrack
}

// StormDataType is the data_type tag sent with storm uploads.
type StormDataType string

const (
	StormDataNWP       StormDataType = "NWP"
	StormDataHRES      StormDataType = "HRES"
	StormDataBestTrack StormDataType = "BESTTRACK"
)

// StormDataKinds maps a storm data type to its file kind.
var StormDataKinds = map[StormDataType]FileKind{
	StormDataNWP:       FileKindNWP,
	StormDataHRES:      FileKindHRES,
	StormDataBestTrack: FileKindBestTrack,
}

// StormDataType returns the data_type tag of a storm kind, or "" for any
// other kind.
func (k FileKind) StormDataType() StormDataType {
	for dt, kind := range StormDataKinds {
		if kind == k {
			return dt
		}
	}
	return ""
}

// ParseStormDataType accepts the tag in any case.
func ParseStormDataType(s string) (StormDataType, error) {
	dt := StormDataType(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := StormDataKinds[dt]; !ok {
		return "", ErrUnsupportedDataType
	}
	return dt, nil
}

// UploadKind identifies which presign/commit endpoint family issued a session.
type UploadKind string

const (
	UploadKindStorms     UploadKind = "storms"
	UploadKindReservoirs UploadKind = "reservoirs"
	UploadKindGeneric    UploadKind = "generic"
)

// UploadKind returns the presign family whose keys a resource of kind k may
// commit. S2S files are presigned through the generic endpoint.
func (k FileKind) UploadKind() UploadKind {
	switch {
	case k.IsStorm():
		return UploadKindStorms
	case k == FileKindReservoirOperation:
		return UploadKindReservoirs
	default:
		return UploadKindGeneric
	}
}

// UploadSessionStatus tracks a presigned key until it is recorded or swept.
type UploadSessionStatus string

const (
	// UploadSessionPresigned: target handed out, no record yet.
	UploadSessionPresigned UploadSessionStatus = "presigned"
	// UploadSessionCommitted: a data-file record references the key.
	UploadSessionCommitted UploadSessionStatus = "committed"
	// UploadSessionSweeping: claimed by the sweeper, outcome pending.
	UploadSessionSweeping UploadSessionStatus = "sweeping"
	// UploadSessionOrphaned: the object exists but was never committed.
	UploadSessionOrphaned UploadSessionStatus = "orphaned"
	// UploadSessionExpired: the target lapsed and nothing was uploaded.
	UploadSessionExpired UploadSessionStatus = "expired"
)

// CommitError reports why a session in status s cannot be committed. It is
// nil for presigned and orphaned sessions.
func (s UploadSessionStatus) CommitError() error {
	switch s {
	case UploadSessionCommitted:
		return ErrAlreadyCommitted
	case UploadSessionExpired:
		return ErrUploadExpired
	case UploadSessionSweeping:
		return ErrUploadBusy
	}
	return nil
}

// AllowedExtensions lists accepted file extensions (without dot) per kind.
// Generic uploads accept anything.
var AllowedExtensions = map[FileKind][]string{
	FileKindNWP:                {"nc", "grib", "grb", "grib2"},
	FileKindHRES:               {"nc", "grib", "grb", "grib2"},
	FileKindBestTrack:          {"txt", "csv", "dat", "json"},
	FileKindReservoirOperation: {"csv", "txt"},
	FileKindS2S:                {"csv", "txt", "nc"},
}

// ResourcePaths maps each file kind to its REST collection, relative to the
// API base.
var ResourcePaths = map[FileKind]string{
	FileKindNWP:                "/storms/nwp-data",
	FileKindHRES:               "/storms/hres-data",
	FileKindBestTrack:          "/storms/besttrack-files",
	FileKindReservoirOperation: "/reservoirs/reservoir-operation-files",
	FileKindS2S:                "/precipitation/s2s-files",
}

// ExportFormat is an accepted export file format.
type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportXLSX ExportFormat = "xlsx"
)

// ParseExportFormat accepts csv or xlsx in any case.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch f := ExportFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case ExportCSV, ExportXLSX:
		return f, nil
	}
	return "", ErrInvalidExportFormat
}

// ParseLegacyDataType maps the data_type field of the single-request upload
// endpoint to a file kind.
func ParseLegacyDataType(s string) (FileKind, error) {
	tag := strings.ToUpper(strings.TrimSpace(s))
	if kind, ok := StormDataKinds[StormDataType(tag)]; ok {
		return kind, nil
	}
	switch tag {
	case "RESERVOIR", "RESERVOIR-OPERATION", "RESERVOIR_OPERATION":
		return FileKindReservoirOperation, nil
	case "S2S":
		return FileKindS2S, nil
	}
	return "", ErrUnsupportedDataType
}
