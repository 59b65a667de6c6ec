/*
Package chat contains the core logic for the realtime room messaging and presence subsystem.

This file defines the metadata validation for files shared into a room. The file bytes
themselves live in object storage and move over presigned URLs; the realtime layer only
validates and announces the metadata.
*/
package chat

import (
	"path"
	"strings"
	"time"

	"studysync/internal/pkg/errs"
)

// MaxSharedFileSize bounds the declared size of a shared file.
const MaxSharedFileSize = 25 << 20 // 25 MiB

// PresignedURLDuration is the lifetime of presigned upload and download URLs.
const PresignedURLDuration = 15 * time.Minute

// allowedFileTypes maps accepted MIME types to their expected extensions.
var allowedFileTypes = map[string][]string{
	"image/jpeg":         {".jpg", ".jpeg"},
	"image/png":          {".png"},
	"image/gif":          {".gif"},
	"image/webp":         {".webp"},
	"application/pdf":    {".pdf"},
	"text/plain":         {".txt", ".md"},
	"application/zip":    {".zip"},
	"application/msword": {".doc"},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {".docx"},
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": {".pptx"},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         {".xlsx"},
}

// FileMeta describes a file shared into a room. Key is the object storage
// key the uploader wrote to; it must be scoped under the room.
type FileMeta struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
}

// ValidateFileSize rejects non-positive or oversized declared file sizes.
func ValidateFileSize(size int64) *errs.CustomError {
	if size <= 0 || size > MaxSharedFileSize {
		return errs.NewError(errs.ErrFileSizeTooLarge)
	}
	return nil
}

// ValidateFileType checks the MIME type against the allow list and the file
// name extension against the type's expected extensions.
func ValidateFileType(fileName string, mimeType string) *errs.CustomError {
	extensions, ok := allowedFileTypes[mimeType]
	if !ok {
		return errs.NewError(errs.ErrFileTypeInvalid)
	}

	ext := strings.ToLower(path.Ext(fileName))
	for _, allowed := range extensions {
		if ext == allowed {
			return nil
		}
	}
	return errs.NewError(errs.ErrFileTypeInvalid)
}

// ValidateFileMeta checks a share_file announcement against the room it is
// being shared into. The storage key must live under the room's namespace.
func ValidateFileMeta(room RoomID, meta FileMeta) *errs.CustomError {
	if meta.Key == "" || !strings.HasPrefix(meta.Key, room.WireID()+"/") {
		return errs.NewError(errs.ErrFileKeyInvalid)
	}

	if customErr := ValidateFileSize(meta.Size); customErr != nil {
		return customErr
	}

	return ValidateFileType(meta.Name, meta.MimeType)
}
