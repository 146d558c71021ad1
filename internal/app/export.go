package app

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"github.com/360EntSecGroup-Skylar/excelize"

	"github.com/paradise-007/healthally/pkg/domain"
)

// Export formats accepted by ExportUsers.
const (
	ExportCSV  = "csv"
	ExportXLSX = "xlsx"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Export is a generated user report. URL is set when the file went to object
// storage, Data otherwise.
type Export struct {
	Filename    string    `json:"filename"`
	ContentType string    `json:"contentType"`
	Key         string    `json:"key,omitempty"`
	URL         string    `json:"url,omitempty"`
	ExpiresAt   time.Time `json:"expiresAt,omitempty"`
	Rows        int       `json:"rows"`
	Data        []byte    `json:"-"`
}

var userExportHeader = []string{"id", "username", "email", "contact", "enrollment", "department", "hostel", "last_login"}

func userExportRow(u domain.User) []string {
	lastLogin := ""
	if !u.LastLogin.IsZero() {
		lastLogin = u.LastLogin.UTC().Format(time.RFC3339)
	}
	return []string{u.ID, u.Username, u.Email, u.Contact, u.Enrollment, u.Department, u.Hostel, lastLogin}
}

// ExportUsers renders every user as csv (the default) or xlsx and uploads the
// file when object storage is configured.
func (a *App) ExportUsers(ctx context.Context, format string) (Export, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportCSV
	}
	var encode func([]domain.User) ([]byte, error)
	contentType := ""
	switch format {
	case ExportCSV:
		encode, contentType = encodeUsersCSV, "text/csv"
	case ExportXLSX:
		encode, contentType = encodeUsersXLSX, xlsxContentType
	default:
		return Export{}, ErrUnknownExportFormat
	}

	users, err := a.store.ListUsers(ctx)
	if err != nil {
		return Export{}, fmt.Errorf("list users: %w", err)
	}
	data, err := encode(users)
	if err != nil {
		return Export{}, err
	}

	now := a.now().UTC()
	out := Export{
		Filename:    "users-" + now.Format("20060102-150405") + "." + format,
		ContentType: contentType,
		Rows:        len(users),
	}
	if a.exports == nil {
		out.Data = data
		return out, nil
	}
	out.Key = "exports/" + out.Filename
	if err := a.exports.Put(ctx, out.Key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return Export{}, fmt.Errorf("upload export: %w", err)
	}
	url, err := a.exports.PresignGet(ctx, out.Key, a.exportLinkTTL, out.Filename)
	if err != nil {
		return Export{}, fmt.Errorf("presign export: %w", err)
	}
	out.URL = url
	out.ExpiresAt = now.Add(a.exportLinkTTL)
	return out, nil
}

func encodeUsersCSV(users []domain.User) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(userExportHeader); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	for _, u := range users {
		if err := w.Write(userExportRow(u)); err != nil {
			return nil, fmt.Errorf("write csv: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}

const usersSheet = "Users"

func encodeUsersXLSX(users []domain.User) ([]byte, error) {
	file := excelize.NewFile()
	index := file.NewSheet(usersSheet)
	file.SetActiveSheet(index)
	file.DeleteSheet("Sheet1")
	for col, name := range userExportHeader {
		file.SetCellValue(usersSheet, cellName(col, 1), name)
	}
	for i, u := range users {
		for col, v := range userExportRow(u) {
			file.SetCellValue(usersSheet, cellName(col, i+2), v)
		}
	}
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

// cellName maps a zero-based column and one-based row to A1 notation. The
// export never exceeds 26 columns.
func cellName(col, row int) string {
	return fmt.Sprintf("%c%d", 'A'+col, row)
}

// PurgeExpiredExports removes uploaded exports whose download link has
// expired and reports how many were deleted.
func (a *App) PurgeExpiredExports(ctx context.Context) (int, error) {
	if a.exports == nil {
		return 0, nil
	}
	objects, err := a.exports.List(ctx, "exports/")
	if err != nil {
		return 0, fmt.Errorf("list exports: %w", err)
	}
	cutoff := a.now().Add(-a.exportLinkTTL)
	purged := 0
	for _, obj := range objects {
		if !obj.LastModified.Before(cutoff) {
			continue
		}
		if err := a.exports.Delete(ctx, obj.Key); err != nil {
			return purged, fmt.Errorf("delete export %s: %w", obj.Key, err)
		}
		purged++
	}
	return purged, nil
}
