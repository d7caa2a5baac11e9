package handler

import (
	"seqreg/internal/registry/models"
)

type CreatedResponse struct {
	ID string `json:"id"`
}

type AddMotifResponse struct {
	ID      string            `json:"id"`
	Outcome models.AddOutcome `json:"outcome"`
}

type SequenceListResponse struct {
	Sequences []*models.Sequence `json:"sequences"`
}

type MotifListResponse struct {
	Motifs []*models.Motif `json:"motifs"`
}
