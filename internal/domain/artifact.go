package domain

import (
	"time"

	"github.com/google/uuid"
)

// Modality identifies the kind of content a tool consumes or produces.
type Modality string

// Known modalities
const (
	ModalityText  Modality = "text"
	ModalityImage Modality = "image"
	ModalityVideo Modality = "video"
)

// ArtifactType identifies the kind of content an artifact holds.
type ArtifactType string

// Possible artifact types
const (
	ArtifactTypeText  ArtifactType = "text"
	ArtifactTypeImage ArtifactType = "image"
	ArtifactTypeVideo ArtifactType = "video"
	ArtifactTypeFile  ArtifactType = "file"
)

// Artifact is one unit of generated output owned by its parent task.
// ObjectKey is an opaque reference into external storage, or the inline
// content itself for text artifacts.
type Artifact struct {
	ID        uuid.UUID
	TaskID    uuid.UUID
	Type      ArtifactType
	ObjectKey string
	Metadata  map[string]interface{}
	CreatedAt time.Time
}
