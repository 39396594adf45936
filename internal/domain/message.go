package domain

import "time"

type (
	MessageID   int64
	MessageType string
	FileStatus  string
	FileID      string
)

const (
	MessageText MessageType = "text"
	MessageFile MessageType = "file"
)

const (
	FileUploading FileStatus = "uploading"
	FileCompleted FileStatus = "completed"
	FileCanceled  FileStatus = "canceled"
	FilePaused    FileStatus = "paused"
)

// MaxFileSize bounds an announced upload so byte counters and percentages
// stay well inside int64.
const MaxFileSize int64 = 1 << 40

// FileMeta describes an announced upload. Chunk bytes live outside the core.
type FileMeta struct {
	FileID   FileID `json:"fileId"`
	Name     string `json:"fileName"`
	Size     int64  `json:"fileSize"`
	MimeType string `json:"mimeType,omitempty"`
	URL      string `json:"url,omitempty"`
}

type Message struct {
	ID        MessageID   `json:"id"`
	RoomID    RoomID      `json:"roomId"`
	Type      MessageType `json:"type"`
	Sender    UserID      `json:"sender"`
	Message   string      `json:"message,omitempty"`
	File      *FileMeta   `json:"file,omitempty"`
	Status    FileStatus  `json:"status,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func (m Message) Clone() Message {
	if m.File != nil {
		f := *m.File
		m.File = &f
	}
	return m
}
