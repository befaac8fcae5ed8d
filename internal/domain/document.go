package domain

import (
	"errors"
	"time"
)

var (
	ErrDocumentNotFound       = errors.New("document not found")
	ErrFileTooLarge           = errors.New("file exceeds maximum upload size")
	ErrFileTypeNotAllowed     = errors.New("file type not allowed")
	ErrEmptyFile              = errors.New("file is empty")
	ErrInvalidCursor          = errors.New("invalid cursor")
	ErrFolderNotFound         = errors.New("folder not found")
	ErrFolderNameConflict     = errors.New("folder with this name already exists")
	ErrDefaultFolderProtected = errors.New("default folder cannot be deleted or renamed")
)

const DefaultFolderName = "General"

type DocumentType string

const (
	DocumentTypePDF          DocumentType = "pdf"
	DocumentTypeImage        DocumentType = "image"
	DocumentTypeDocument     DocumentType = "document"
	DocumentTypeSpreadsheet  DocumentType = "spreadsheet"
	DocumentTypePresentation DocumentType = "presentation"
	DocumentTypeArchive      DocumentType = "archive"
	DocumentTypeText         DocumentType = "text"
	DocumentTypeOther        DocumentType = "other"
)

var documentTypesByExt = map[string]DocumentType{
	"pdf":  DocumentTypePDF,
	"jpg":  DocumentTypeImage,
	"jpeg": DocumentTypeImage,
	"png":  DocumentTypeImage,
	"gif":  DocumentTypeImage,
	"webp": DocumentTypeImage,
	"doc":  DocumentTypeDocument,
	"docx": DocumentTypeDocument,
	"odt":  DocumentTypeDocument,
	"xls":  DocumentTypeSpreadsheet,
	"xlsx": DocumentTypeSpreadsheet,
	"csv":  DocumentTypeSpreadsheet,
	"ppt":  DocumentTypePresentation,
	"pptx": DocumentTypePresentation,
	"zip":  DocumentTypeArchive,
	"rar":  DocumentTypeArchive,
	"7z":   DocumentTypeArchive,
	"txt":  DocumentTypeText,
	"md":   DocumentTypeText,
}

// DocumentTypeFor classifies a lowercase extension without the leading dot.
func DocumentTypeFor(ext string) DocumentType {
	if t, ok := documentTypesByExt[ext]; ok {
		return t
	}
	return DocumentTypeOther
}

type Document struct {
	ID           string
	OwnerID      string
	FolderID     string
	Name         string
	StoredName   string
	Description  string
	Tags         []string
	SizeBytes    int64
	MimeType     string
	Extension    string
	DocumentType DocumentType
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Folder struct {
	ID            string
	Name          string
	Description   string
	Color         string
	Icon          string
	IsDefault     bool
	DocumentCount int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
