package datasite

import (
	"github.com/openmined/syftbox/internal/server/blob"
)

// BlobServiceInterface defines the minimal interface we need from BlobService
type BlobServiceInterface interface {
	Backend() blob.IBlobBackend
	Index() blob.IBlobIndex
	OnBlobChange(callback blob.BlobChangeCallback)
}

// Ensure BlobService implements our interface
var _ BlobServiceInterface = (*blob.BlobService)(nil)