package types

import (
	"encoding/json"
	"fmt"
)

// PrintJobRequest is the JSON body of POST /print-job/.
type PrintJobRequest struct {
	PrinterID ID     `json:"printer_id"`
	FileURL   string `json:"file_url"`
	Copies    int    `json:"copies"`
}

// PrintJob is the job object echoed by the submission endpoint and pushed on
// the notification stream. Only PrinterID is guaranteed. The backend relays
// job objects written by other clients, so fields with an unexpected type
// decode to their zero value instead of failing the whole object.
type PrintJob struct {
	ID        ID     `json:"id,omitempty"`
	PrinterID ID     `json:"printer_id"`
	FileURL   string `json:"file_url,omitempty"`
	Copies    Count  `json:"copies,omitempty"`
	Status    string `json:"status,omitempty"`
	ClientID  string `json:"client_id,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

func (j *PrintJob) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode print job: %w", err)
	}

	*j = PrintJob{}
	decodeField(raw["id"], &j.ID)
	decodeField(raw["printer_id"], &j.PrinterID)
	decodeField(raw["file_url"], &j.FileURL)
	decodeField(raw["copies"], &j.Copies)
	decodeField(raw["status"], &j.Status)
	decodeField(raw["client_id"], &j.ClientID)
	decodeField(raw["created_at"], &j.CreatedAt)
	return nil
}

func decodeField(data json.RawMessage, dst any) {
	if len(data) == 0 {
		return
	}
	_ = json.Unmarshal(data, dst)
}

// PrintJobResponse is the body returned by POST /print-job/.
type PrintJobResponse struct {
	PrintJob *PrintJob `json:"print_job"`
}
