package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"time"

	"hydromet/internal/domain"
	"hydromet/internal/upload"
)

// ReservoirTarget is a reservoir upload target. The server picks the issued
// hour and echoes it back.
type ReservoirTarget struct {
	upload.Target
	IssuedDate string `json:"issuedDate"`
}

// GenericContext is the optional context of a generic upload.
type GenericContext struct {
	Path        string
	StormID     *int64
	ReservoirID *int64
	IssuedDate  string
	DataType    string
}

// ReservoirCommit carries the optional fields of a reservoir commit. Zero
// fields keep the values given at presign.
type ReservoirCommit struct {
	ReservoirID *int64     `json:"reservoir_id,omitempty"`
	FromTime    *time.Time `json:"from_time,omitempty"`
	ToTime      *time.Time `json:"to_time,omitempty"`
	AddedTime   *time.Time `json:"added_time,omitempty"`
}

// LegacyFields is the context of a single-request upload.
type LegacyFields struct {
	DataType    string
	Path        string
	StormID     *int64
	IssuedDate  string
	ReservoirID *int64
	FromTime    *time.Time
	ToTime      *time.Time
	S2SID       *int64
	AddedTime   *time.Time
}

// LegacyResult is the answer of the single-request upload endpoint.
type LegacyResult struct {
	Key  string            `json:"key"`
	URL  string            `json:"url"`
	Meta domain.CommitMeta `json:"meta"`
}

// PresignStorm requests a storm data upload target.
func (c *Client) PresignStorm(
	ctx context.Context, file upload.FileInfo, stormID int64, issuedDate string, dataType domain.StormDataType,
) (*upload.Target, error) {
	fields := fileFields(file)
	fields["storm_id"] = strconv.FormatInt(stormID, 10)
	fields["issued_date"] = issuedDate
	fields["data_type"] = string(dataType)

	var target upload.Target
	if err := c.presign(ctx, "/storage/presign/storms", fields, &target); err != nil {
		return nil, err
	}
	return &target, nil
}

// PresignReservoir requests a reservoir operation file upload target.
func (c *Client) PresignReservoir(ctx context.Context, file upload.FileInfo, reservoirID *int64) (*ReservoirTarget, error) {
	fields := fileFields(file)
	if reservoirID != nil {
		fields["reservoir_id"] = strconv.FormatInt(*reservoirID, 10)
	}

	var target ReservoirTarget
	if err := c.presign(ctx, "/storage/presign/reservoirs", fields, &target); err != nil {
		return nil, err
	}
	return &target, nil
}

// PresignGeneric requests an upload target under an arbitrary path.
func (c *Client) PresignGeneric(ctx context.Context, file upload.FileInfo, gc GenericContext) (*upload.Target, error) {
	fields := fileFields(file)
	setIf(fields, "path", gc.Path)
	setIf(fields, "issued_date", gc.IssuedDate)
	setIf(fields, "data_type", gc.DataType)
	setID(fields, "storm_id", gc.StormID)
	setID(fields, "reservoir_id", gc.ReservoirID)

	var target upload.Target
	if err := c.presign(ctx, "/storage/presign", fields, &target); err != nil {
		return nil, err
	}
	return &target, nil
}

// CommitStorm records an uploaded storm data file.
func (c *Client) CommitStorm(
	ctx context.Context, key string, stormID int64, issuedDate string, dataType domain.StormDataType,
) (*upload.CommitResult, error) {
	body := map[string]any{
		"key":         key,
		"storm_id":    stormID,
		"issued_date": issuedDate,
		"data_type":   string(dataType),
	}
	env, err := c.doJSON(ctx, http.MethodPost, "/storage/commit/storms", nil, body)
	if err != nil {
		return nil, err
	}
	return upload.DecodeCommitResult(env.Data)
}

// CommitReservoir records an uploaded reservoir operation file.
func (c *Client) CommitReservoir(ctx context.Context, key string, rc ReservoirCommit) (*upload.CommitResult, error) {
	body := struct {
		Key string `json:"key"`
		ReservoirCommit
	}{Key: key, ReservoirCommit: rc}
	env, err := c.doJSON(ctx, http.MethodPost, "/storage/commit/reservoirs", nil, body)
	if err != nil {
		return nil, err
	}
	return upload.DecodeCommitResult(env.Data)
}

// LegacyUpload sends file and its context in one multipart request. The body
// is streamed, so the request is never retried.
func (c *Client) LegacyUpload(ctx context.Context, file *upload.File, fields LegacyFields) (*LegacyResult, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", file.Name, err)
	}
	defer func() { _ = rc.Close() }()

	form := map[string]string{}
	setIf(form, "data_type", fields.DataType)
	setIf(form, "path", fields.Path)
	setIf(form, "issued_date", fields.IssuedDate)
	setID(form, "storm_id", fields.StormID)
	setID(form, "reservoir_id", fields.ReservoirID)
	setID(form, "s2s_id", fields.S2SID)
	setTime(form, "from_time", fields.FromTime)
	setTime(form, "to_time", fields.ToTime)
	setTime(form, "added_time", fields.AddedTime)

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeLegacyForm(mw, form, file.FileInfo, rc))
	}()

	env, err := c.do(ctx, http.MethodPost, "/storage/upload", nil, pr, mw.FormDataContentType())
	_ = pr.Close()
	if err != nil {
		return nil, err
	}
	var res LegacyResult
	if err := json.Unmarshal(env.Data, &res); err != nil {
		return nil, fmt.Errorf("decoding upload result: %w", err)
	}
	return &res, nil
}

func writeLegacyForm(mw *multipart.Writer, form map[string]string, info upload.FileInfo, r io.Reader) error {
	for k, v := range form {
		if err := mw.WriteField(k, v); err != nil {
			return err
		}
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, info.Name))
	h.Set("Content-Type", upload.ContentTypeFor(info.Name))
	if info.ContentType != "" {
		h.Set("Content-Type", info.ContentType)
	}
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, r); err != nil {
		return err
	}
	return mw.Close()
}

func (c *Client) presign(ctx context.Context, path string, fields map[string]string, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return fmt.Errorf("encoding presign form: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("encoding presign form: %w", err)
	}

	env, err := c.do(ctx, http.MethodPost, path, nil, &buf, mw.FormDataContentType())
	if err != nil {
		return err
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decoding presign result: %w", err)
	}
	return nil
}

func fileFields(file upload.FileInfo) map[string]string {
	fields := map[string]string{"filename": file.Name}
	setIf(fields, "content_type", file.ContentType)
	if file.Size > 0 {
		fields["size"] = strconv.FormatInt(file.Size, 10)
	}
	return fields
}

func setIf(fields map[string]string, key, value string) {
	if value != "" {
		fields[key] = value
	}
}

func setID(fields map[string]string, key string, id *int64) {
	if id != nil {
		fields[key] = strconv.FormatInt(*id, 10)
	}
}

func setTime(fields map[string]string, key string, t *time.Time) {
	if t != nil {
		fields[key] = t.UTC().Format(time.RFC3339)
	}
}
