package amqp

import (
	"encoding/json"
	"time"
)

// StatementUploadedMessage tells the ingestion worker that a statement
// PDF landed on disk. It carries only the document path; the worker
// reads the file and runs extraction itself.
type StatementUploadedMessage struct {
	UploadID  string    `json:"upload_id"`
	PDFPath   string    `json:"pdf_path"`
	Timestamp time.Time `json:"timestamp"`
}

// NewStatementUploadedMessage creates an upload message for the PDF at path
func NewStatementUploadedMessage(uploadID, pdfPath string) *StatementUploadedMessage {
	return &StatementUploadedMessage{
		UploadID:  uploadID,
		PDFPath:   pdfPath,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *StatementUploadedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// FromJSON creates a message from JSON bytes
func StatementUploadedMessageFromJSON(data []byte) (*StatementUploadedMessage, error) {
	var msg StatementUploadedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
