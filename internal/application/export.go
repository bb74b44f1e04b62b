package application

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// ExportFormat names a download encoding.
type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportJSON ExportFormat = "json"
)

// ExportFile is a rendered download.
type ExportFile struct {
	FileName    string
	ContentType string
	Data        []byte
}

var csvHeader = []string{
	"id", "user_name", "email", "room_name", "date", "start_time", "end_time",
	"purpose", "form_level", "class_name", "status", "created_at",
}

type exportRecord struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	UserName  string `json:"userName"`
	Email     string `json:"email"`
	RoomName  string `json:"roomName"`
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Purpose   string `json:"purpose"`
	FormLevel int    `json:"formLevel"`
	ClassName string `json:"className"`
	Status    string `json:"status"`
	CreatedAt string `json:"createdAt"`
}

// Export renders every reservation, ordered by date, for super admins.
func (s *ReservationService) Export(ctx context.Context, principal Principal, format ExportFormat) (file ExportFile, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Export",
		"principal_id", principal.AccountID,
		"format", string(format),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "export failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "reservations exported", "bytes", len(file.Data))
	}()

	if !principal.IsSuperAdmin() {
		err = ErrUnauthorized
		return
	}
	if format != ExportCSV && format != ExportJSON {
		err = &ValidationError{FieldErrors: map[string]string{"format": "format must be csv or json"}}
		return
	}

	var all []Reservation
	if all, err = s.loadAll(ctx); err != nil {
		return
	}
	sortReservations(all, SortByDate)

	file.FileName = fmt.Sprintf("reservations_%s_%s.%s", format, s.now().Format(DateLayout), format)
	switch format {
	case ExportCSV:
		file.ContentType = "text/csv"
		file.Data, err = encodeCSV(all)
	case ExportJSON:
		file.ContentType = "application/json"
		file.Data, err = encodeJSON(all)
	}
	return
}

func encodeCSV(list []Reservation) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, r := range list {
		row := []string{
			r.ID, r.UserName, r.Email, r.RoomName, r.Date, r.StartTime, r.EndTime,
			r.Purpose, strconv.Itoa(r.FormLevel), r.ClassName, r.Status,
			r.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeJSON(list []Reservation) ([]byte, error) {
	records := make([]exportRecord, 0, len(list))
	for _, r := range list {
		records = append(records, exportRecord{
			ID:        r.ID,
			UserID:    r.UserID,
			UserName:  r.UserName,
			Email:     r.Email,
			RoomName:  r.RoomName,
			Date:      r.Date,
			StartTime: r.StartTime,
			EndTime:   r.EndTime,
			Purpose:   r.Purpose,
			FormLevel: r.FormLevel,
			ClassName: r.ClassName,
			Status:    r.Status,
			CreatedAt: r.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return json.MarshalIndent(records, "", "  ")
}
