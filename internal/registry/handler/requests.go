package handler

import (
	"strings"

	dErrors "seqreg/pkg/domain-errors"
)

const (
	maxTitleLength     = 512
	maxAccessionLength = 64
)

// AddSequenceRequest is the body of POST /sequences. Content is validated by
// the registry, not here.
type AddSequenceRequest struct {
	Content string `json:"content"`
	Title   string `json:"title"`
}

func (r *AddSequenceRequest) Normalize() {
	if r == nil {
		return
	}
	r.Title = strings.TrimSpace(r.Title)
}

func (r *AddSequenceRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if len(r.Title) > maxTitleLength {
		return dErrors.Newf(dErrors.CodeInvalidInput, "title must be %d characters or less", maxTitleLength)
	}
	return nil
}

// FetchSequenceRequest is the body of POST /sequences/ncbi.
type FetchSequenceRequest struct {
	Accession string `json:"accession"`
}

func (r *FetchSequenceRequest) Normalize() {
	if r == nil {
		return
	}
	r.Accession = strings.TrimSpace(r.Accession)
}

func (r *FetchSequenceRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if len(r.Accession) > maxAccessionLength {
		return dErrors.Newf(dErrors.CodeInvalidInput, "accession must be %d characters or less", maxAccessionLength)
	}
	if r.Accession == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "accession is required")
	}
	return nil
}

// AddMotifRequest is the body of POST /motifs.
type AddMotifRequest struct {
	Pattern string `json:"pattern"`
}

func (r *AddMotifRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return nil
}

// SetActiveRequest is the body of PUT /sequences/{id}/active and
// PUT /motifs/{id}/active. Active is a pointer so a missing field is an error
// rather than false.
type SetActiveRequest struct {
	Active *bool `json:"active"`
}

func (r *SetActiveRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.Active == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "active is required")
	}
	return nil
}
